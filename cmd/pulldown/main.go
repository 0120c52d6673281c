// Command pulldown exports the survey metadata table from a Postgres store or
// a SQLite snapshot.
//
//	pulldown export --driver sqlite --database ag.db --format tsv --out metadata.tsv
//	pulldown questions --database postgres://...
package main

import (
	"os"

	"github.com/labadmin/pulldown/internal/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger.Error("pulldown failed", "error", err)
		os.Exit(1)
	}
}
