// Package report persists the outcome of indexcheck runs.
//
// A Report is written as indented JSON with snake_case keys, one file per
// collection, so repeated runs against the same app leave a history that is
// easy to diff:
//
//	repo := report.NewFileRepository("/var/lib/indexcheck")
//	if err := repo.Save(ctx, r); err != nil {
//	    return err
//	}
package report
