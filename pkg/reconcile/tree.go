package reconcile

import "github.com/ekaya-inc/ekaya-console/pkg/models"

// The helpers below copy only the path from the root to the changed node.
// Every untouched project, table and version is shared with the input. When
// the target is missing the input slice is returned unchanged.

func mapProject(projects []models.Project, projectID string, fn func(models.Project) models.Project) []models.Project {
	_, idx := models.FindProject(projects, projectID)
	if idx < 0 {
		return projects
	}
	next := make([]models.Project, len(projects))
	copy(next, projects)
	next[idx] = fn(projects[idx])
	return next
}

func removeProject(projects []models.Project, projectID string) []models.Project {
	_, idx := models.FindProject(projects, projectID)
	if idx < 0 {
		return projects
	}
	next := make([]models.Project, 0, len(projects)-1)
	next = append(next, projects[:idx]...)
	return append(next, projects[idx+1:]...)
}

func mapTable(projects []models.Project, projectID, tableID string, fn func(models.Table) models.Table) []models.Project {
	return mapProject(projects, projectID, func(p models.Project) models.Project {
		_, idx := p.FindTable(tableID)
		if idx < 0 {
			return p
		}
		tables := make([]models.Table, len(p.Tables))
		copy(tables, p.Tables)
		tables[idx] = fn(p.Tables[idx])
		p.Tables = tables
		return p
	})
}

func appendTable(projects []models.Project, projectID string, t models.Table) []models.Project {
	return mapProject(projects, projectID, func(p models.Project) models.Project {
		tables := make([]models.Table, 0, len(p.Tables)+1)
		tables = append(tables, p.Tables...)
		p.Tables = append(tables, t)
		return p
	})
}

func removeTable(projects []models.Project, projectID, tableID string) []models.Project {
	return mapProject(projects, projectID, func(p models.Project) models.Project {
		_, idx := p.FindTable(tableID)
		if idx < 0 {
			return p
		}
		tables := make([]models.Table, 0, len(p.Tables)-1)
		tables = append(tables, p.Tables[:idx]...)
		p.Tables = append(tables, p.Tables[idx+1:]...)
		return p
	})
}

func mapVersion(projects []models.Project, projectID, tableID, versionID string, fn func(models.Version) models.Version) []models.Project {
	return mapTable(projects, projectID, tableID, func(t models.Table) models.Table {
		_, idx := t.FindVersion(versionID)
		if idx < 0 {
			return t
		}
		versions := make([]models.Version, len(t.Versions))
		copy(versions, t.Versions)
		versions[idx] = fn(t.Versions[idx])
		t.Versions = versions
		return t
	})
}

func appendVersion(projects []models.Project, projectID, tableID string, v models.Version) []models.Project {
	return mapTable(projects, projectID, tableID, func(t models.Table) models.Table {
		versions := make([]models.Version, 0, len(t.Versions)+1)
		versions = append(versions, t.Versions...)
		t.Versions = append(versions, v)
		return t
	})
}

func removeVersion(projects []models.Project, projectID, tableID, versionID string) []models.Project {
	return mapTable(projects, projectID, tableID, func(t models.Table) models.Table {
		_, idx := t.FindVersion(versionID)
		if idx < 0 {
			return t
		}
		versions := make([]models.Version, 0, len(t.Versions)-1)
		versions = append(versions, t.Versions[:idx]...)
		t.Versions = append(versions, t.Versions[idx+1:]...)
		return t
	})
}
