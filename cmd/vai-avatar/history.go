package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-go/vai-avatar/pkg/avatar/transcript/sqlitestore"
)

func newHistoryCmd(opts *globalOptions) *cobra.Command {
	var (
		session string
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print transcript entries saved by earlier sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			path := strings.TrimSpace(cfg.Transcript.Store)
			if path == "" {
				return errors.New("no transcript store configured (set --transcript-db or transcript.store)")
			}
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("transcript store: %w", err)
			}

			store, err := sqlitestore.Open(path, "", nil)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.List(strings.TrimSpace(session), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, rec := range records {
				fmt.Fprintf(out, "%s  %s  %-6s  %s\n",
					rec.Entry.At.Local().Format(time.DateTime),
					shortID(rec.SessionID),
					rec.Entry.Author,
					rec.Entry.Text,
				)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "only show this session ID")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "show at most this many of the newest entries (0 for all)")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
