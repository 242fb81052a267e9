package validation

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-console/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-console/pkg/gateway"
)

// MaxNameLength bounds project, table and schema names.
const MaxNameLength = 128

// Required returns apperrors.ErrInvalidInput when value is blank.
func Required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s is required", apperrors.ErrInvalidInput, field)
	}
	return nil
}

// Name checks a required, injection-free display or table name.
func Name(field, value string) error {
	if err := Required(field, value); err != nil {
		return err
	}
	if len(value) > MaxNameLength {
		return fmt.Errorf("%w: %s must be at most %d characters", apperrors.ErrInvalidInput, field, MaxNameLength)
	}
	return Identifiers(map[string]string{field: value})
}

// CreateProject validates a project submission.
func CreateProject(in gateway.CreateProjectInput) error {
	if err := Name("name", in.Name); err != nil {
		return err
	}
	if err := Name("table_name", in.TableName); err != nil {
		return err
	}
	if _, err := ConnectionString(in.ConnectionString); err != nil {
		return err
	}
	return Identifiers(map[string]string{"table_schema": in.TableSchema})
}

// UpdateProject validates a rename.
func UpdateProject(patch gateway.ProjectPatch) error {
	if err := Required("id", patch.ID); err != nil {
		return err
	}
	return Name("name", patch.Name)
}

// CreateTable validates a table submission.
func CreateTable(in gateway.CreateTableInput) error {
	if err := Required("project_id", in.ProjectID); err != nil {
		return err
	}
	if err := Name("name", in.Name); err != nil {
		return err
	}
	if _, err := ConnectionString(in.ConnectionString); err != nil {
		return err
	}
	return Identifiers(map[string]string{"schema": in.Schema})
}

// UpdateTable validates the fields present in a table patch.
func UpdateTable(patch gateway.TablePatch) error {
	if err := Required("id", patch.ID); err != nil {
		return err
	}
	if patch.Name == nil && patch.Schema == nil && patch.DefaultLimits == nil {
		return fmt.Errorf("%w: nothing to update", apperrors.ErrInvalidInput)
	}
	if patch.Name != nil {
		if err := Name("name", *patch.Name); err != nil {
			return err
		}
	}
	if patch.Schema != nil {
		if err := Identifiers(map[string]string{"schema": *patch.Schema}); err != nil {
			return err
		}
	}
	return nil
}

// CreateVersion validates a version submission. The SQL is required but is
// otherwise sent as written.
func CreateVersion(tableID, commitHash, sql string) error {
	if err := Required("table_id", tableID); err != nil {
		return err
	}
	if err := Required("commit_hash", commitHash); err != nil {
		return err
	}
	if err := Required("sql", sql); err != nil {
		return err
	}
	return Identifiers(map[string]string{"commit_hash": commitHash})
}

// UpdateVersion validates the fields present in a version patch.
func UpdateVersion(patch gateway.VersionPatch) error {
	if err := Required("id", patch.ID); err != nil {
		return err
	}
	if patch.CommitHash == nil && patch.PRNumber == nil {
		return fmt.Errorf("%w: nothing to update", apperrors.ErrInvalidInput)
	}
	if patch.CommitHash != nil {
		if err := Required("commit_hash", *patch.CommitHash); err != nil {
			return err
		}
		if err := Identifiers(map[string]string{"commit_hash": *patch.CommitHash}); err != nil {
			return err
		}
	}
	if patch.PRNumber != nil && *patch.PRNumber <= 0 {
		return fmt.Errorf("%w: pr_number must be positive", apperrors.ErrInvalidInput)
	}
	return nil
}
