// Package cli implements blogctl, the terminal front end of the blog.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cppla/miniblog/client"
)

const defaultAPI = "http://localhost:3000"

type app struct {
	v       *viper.Viper
	verbose bool
	timeout time.Duration

	log   *zap.Logger
	state *client.State
}

// NewRootCmd builds the blogctl command tree.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "blogctl",
		Short:         "Read and write the mini blog from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.String("api", defaultAPI, "blog server base URL (env BLOG_API)")
	flags.String("state", client.DefaultPrefsPath(), "file holding the login and theme (env BLOG_STATE)")
	flags.DurationVar(&a.timeout, "timeout", 10*time.Second, "per-request timeout")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log client diagnostics to stderr")

	a.v.SetEnvPrefix("BLOG")
	_ = a.v.BindEnv("api")
	_ = a.v.BindEnv("state")
	_ = a.v.BindPFlag("api", flags.Lookup("api"))
	_ = a.v.BindPFlag("state", flags.Lookup("state"))

	root.AddCommand(
		a.postsCmd(),
		a.postCmd(),
		a.commentCmd(),
		a.likeCmd(),
		a.signupCmd(),
		a.loginCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.usersCmd(),
		a.sidebarCmd(),
		a.themeCmd(),
		a.healthCmd(),
	)
	return root
}

func (a *app) open() error {
	a.log = newLogger(a.verbose)
	api := client.NewAPI(a.v.GetString("api"), a.timeout)
	a.state = client.NewState(api, a.v.GetString("state"), client.WithLogger(a.log))
	return nil
}

func newLogger(verbose bool) *zap.Logger {
	level := zapcore.ErrorLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(os.Stderr), level)
	return zap.New(core)
}

// Execute runs blogctl and exits non-zero after a one-line notification on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		notify(root.ErrOrStderr(), err)
		os.Exit(1)
	}
}

func notify(w io.Writer, err error) {
	fmt.Fprintln(w, paletteFor("").err.Sprint("✗ "+errorMessage(err)))
}

func errorMessage(err error) string {
	var apiErr *client.APIError
	msg := err.Error()
	switch {
	case errors.As(err, &apiErr):
		msg = apiErr.Message
	case errors.Is(err, client.ErrNotLoggedIn):
		msg = "not logged in, run `blogctl login <user>` first"
	}
	return strings.Join(strings.Fields(stripControl(msg)), " ")
}
