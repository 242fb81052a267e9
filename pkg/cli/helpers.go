package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/ekaya-console/pkg/cache"
	"github.com/ekaya-inc/ekaya-console/pkg/config"
	"github.com/ekaya-inc/ekaya-console/pkg/jsonutil"
	"github.com/ekaya-inc/ekaya-console/pkg/logging"
	"github.com/ekaya-inc/ekaya-console/pkg/normalize"
	"github.com/ekaya-inc/ekaya-console/pkg/reconcile"
	"github.com/ekaya-inc/ekaya-console/pkg/refresh"
	"github.com/ekaya-inc/ekaya-console/pkg/services"
)

// Output formats accepted by --output.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

// console is the wired object graph shared by serve and the one-shot commands.
type console struct {
	cfg        *config.Config
	logger     *zap.Logger
	store      *cache.Store
	processing *refresh.ProcessingSet
	poller     *refresh.Poller
	dashboard  services.DashboardService
}

func (o *options) build() (*console, error) {
	cfg, err := config.LoadFile(o.configPath, o.version)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}

	logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	gw := o.newGateway(cfg, logger)
	store := cache.New()
	processing := refresh.NewProcessingSet()
	poller := refresh.NewPoller(store, gw, normalize.New(), processing, cfg.Refresh.Interval, logger)
	engine := reconcile.NewEngine(store, gw, logger)

	return &console{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		processing: processing,
		poller:     poller,
		dashboard:  services.NewDashboardService(store, engine, poller, processing, cfg.Backend.UserID, logger),
	}, nil
}

// settle finishes a one-shot mutation: a rejected mutation is reported as a
// notice on stderr, an accepted one is followed by a refresh so the printed
// outcome reflects what the backend committed.
func (c *console) settle(ctx context.Context, cmd *cobra.Command, format string, out reconcile.Outcome, err error) error {
	if err != nil {
		var mErr *reconcile.MutationError
		if errors.As(err, &mErr) {
			fmt.Fprintf(cmd.ErrOrStderr(), "notice: %s\n", mErr.Message)
		}
		return err
	}

	if _, err := c.poller.Refresh(ctx); err != nil {
		c.logger.Warn("Refresh after mutation failed; backend state not confirmed", zap.Error(err))
	}
	return render(cmd.OutOrStdout(), format, out)
}

// render writes v as indented JSON or as YAML. YAML keys follow the JSON
// field names.
func render(w io.Writer, format string, v any) error {
	switch format {
	case outputJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		generic, err := jsonutil.Decode(data)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q (use json or yaml)", format)
	}
}

func outputFlag(cmd *cobra.Command, target *string, def string) {
	cmd.Flags().StringVarP(target, "output", "o", def, "output format (json, yaml)")
}
