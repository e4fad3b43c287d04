package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-go/vai-avatar/internal/demoagent"
)

func newDemoCmd(opts *globalOptions) *cobra.Command {
	var (
		addr       string
		staticDir  string
		replyVideo string
		replyDelay time.Duration
	)
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Serve a scripted demo agent",
		Long: `Serve a scripted agent speaking the avatar protocol. It greets each
connection with the welcome clip, then answers every message with the usual
status, text and clip sequence. Without --reply-video every reply ends in an
error event.

Examples:
  vai-avatar demo --static-dir ./static --reply-video /static/reply.mp4
  vai-avatar chat --url ws://127.0.0.1:8000/ws`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			logger, closeLog, err := newLogger(cfg.Logging, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeLog()

			demo := cfg.Demo
			if v := strings.TrimSpace(addr); v != "" {
				demo.Addr = v
			}
			if v := strings.TrimSpace(staticDir); v != "" {
				demo.StaticDir = v
			}
			if v := strings.TrimSpace(replyVideo); v != "" {
				demo.ReplyVideo = v
			}
			if cmd.Flags().Changed("reply-delay") {
				demo.ReplyDelay = replyDelay
			}

			agent := demoagent.New(demoagent.Config{
				WelcomeVideo: demo.WelcomeVideo,
				ReplyVideo:   demo.ReplyVideo,
				StatusImage:  demo.StatusImage,
				ThinkingText: demo.ThinkingText,
				SpeakingText: demo.SpeakingText,
				ReplyDelay:   demo.ReplyDelay,
				StaticDir:    demo.StaticDir,
				Logger:       logger,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return agent.ListenAndServe(ctx, demo.Addr, 5*time.Second)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, 127.0.0.1:8000)")
	cmd.Flags().StringVar(&staticDir, "static-dir", "", "directory served under /static/")
	cmd.Flags().StringVar(&replyVideo, "reply-video", "", "clip URL sent with every video_ready")
	cmd.Flags().DurationVar(&replyDelay, "reply-delay", 0, "pause before the text and before the clip")
	return cmd
}
