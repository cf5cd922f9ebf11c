package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tabloom-cli/internal/server"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the health and analyze endpoints over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := current()
		if cmd.Flags().Changed("host") {
			c.ServerHost = serveHost
		}
		if cmd.Flags().Changed("port") {
			c.ServerPort = servePort
		}
		opts, err := pipelineOptions(c, nil)
		if err != nil {
			return err
		}
		if c.LogLevel != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		log.WithField("addr", c.Addr()).Info("tabloom service starting")
		return server.Serve(ctx, c.Addr(), server.NewRouter(server.NewHandler(opts)))
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host (overrides server_host)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides server_port)")
}
