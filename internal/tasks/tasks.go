package tasks

import (
	"embed"
	"errors"

	"git.home.luguber.info/inful/packhooks/internal/hooks"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Built-in job types.
const (
	JobBump     hooks.JobType = "bump"
	JobCopyFile hooks.JobType = "copy-file"
	JobPlainLib hooks.JobType = "plain-lib"
	JobAffected hooks.JobType = "affected"
	JobReadme   hooks.JobType = "readme"
	JobPublish  hooks.JobType = "publish"
	JobNotify   hooks.JobType = "notify"
	JobLedger   hooks.JobType = "ledger"
)

func schema(name string) hooks.SchemaRef {
	return hooks.SchemaRef{FS: schemaFS, Path: "schemas/" + name}
}

// Jobs returns the metadata of every built-in job, keyed by job type.
func Jobs() map[hooks.JobType]hooks.JobMetadata {
	return map[hooks.JobType]hooks.JobMetadata{
		JobBump:     bumpJob(),
		JobCopyFile: copyFileJob(),
		JobPlainLib: plainLibJob(),
		JobAffected: affectedJob(),
		JobReadme:   readmeJob(),
		JobPublish:  publishJob(),
		JobNotify:   notifyJob(),
		JobLedger:   ledgerJob(),
	}
}

// Declare adds every built-in job to table.
func Declare(table *hooks.JobTable) error {
	var errs []error
	for id, meta := range Jobs() {
		if _, err := table.Declare(id, meta); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RegisterProviders adds the named providers to t.
func RegisterProviders(t *hooks.ProviderTable) error {
	var errs []error
	for name, p := range Providers() {
		if err := t.Register(name, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func init() {
	if err := Declare(hooks.DefaultJobTable()); err != nil {
		panic(err)
	}
	if err := RegisterProviders(hooks.DefaultProviderTable()); err != nil {
		panic(err)
	}
}
