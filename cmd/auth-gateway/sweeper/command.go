package sweeper

import (
	"github.com/spf13/cobra"

	"github.com/habitloop/auth-gateway/internal/business"
	"github.com/habitloop/auth-gateway/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"sweeper",
		"Auth Gateway Sweeper job",
		"Auth Gateway Sweeper job reclaims expired sessions that cannot be refreshed",
		buildInfo,
		cmdutils.RunAsService,
		business.SweeperMain,
	)
}
