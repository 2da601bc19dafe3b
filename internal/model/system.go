package model

// VersionInfo reports the running application version and the applied schema migration.
type VersionInfo struct {
	AppVersion      string          `json:"app_version"`
	DbVersion       int64           `json:"db_version"`
	LatestDbVersion int64           `json:"latest_db_version"`
	MigrationNeeded bool            `json:"migration_needed"`
	Features        map[string]bool `json:"features"`
}
