package migrate

import (
	"github.com/spf13/cobra"

	"github.com/habitloop/auth-gateway/internal/business"
	"github.com/habitloop/auth-gateway/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"migrate",
		"Auth Gateway migrations",
		"Auth Gateway migrations applies the database schema",
		buildInfo,
		cmdutils.RunAsJob,
		business.MigrateMain,
	)
}
