package apiserver

import (
	"github.com/spf13/cobra"

	"github.com/habitloop/auth-gateway/internal/business"
	"github.com/habitloop/auth-gateway/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"api-server",
		"Auth Gateway API server",
		"Auth Gateway API server hosts the browser facing login endpoints",
		buildInfo,
		cmdutils.RunAsService,
		business.Main,
	)
}
