package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/TimurManjosov/pawswipe/internal/catalog"
	"github.com/TimurManjosov/pawswipe/internal/session"
	"github.com/TimurManjosov/pawswipe/internal/store"
	"github.com/TimurManjosov/pawswipe/internal/swipe"
	"github.com/TimurManjosov/pawswipe/internal/tui"
)

var (
	playFilter  filterFlags
	playShuffle bool
	playSession string
	playLocal   bool
	playCatalog string
	playDB      string
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Swipe through a deck in the terminal",
	Long: `Open an interactive card deck. By default the deck is a new session on
the configured server; --session joins an existing one over its WebSocket.
With --local the whole engine runs in-process against the built-in catalog
(or --catalog), recording decisions in memory or in the SQLite file --db.

Keys: ←/h pass, →/l like, ",". drag, space release, esc cancel, q quit.

Examples:
  pawswipe play --attr species=dog --shuffle
  pawswipe play --session <id>
  pawswipe play --local --catalog pets.yaml --db decisions.db`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		f, err := playFilter.filter()
		if err != nil {
			return err
		}
		if playLocal {
			return playInProcess(ctx, f)
		}
		return playRemote(ctx, f)
	},
}

func playRemote(ctx context.Context, f catalog.Filter) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	id := playSession
	if id == "" {
		if id, _, err = c.CreateSession(ctx, f, playShuffle); err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
	}
	b, err := tui.NewRemote(ctx, c, id)
	if err != nil {
		return fmt.Errorf("failed to join session: %w", err)
	}
	return tui.Run(b, "pawswipe · "+id)
}

func playInProcess(ctx context.Context, f catalog.Filter) error {
	// The terminal belongs to the TUI; engine logs are discarded.
	log := zerolog.Nop()

	var src catalog.Source = catalog.NewEmbeddedSource()
	var watch func(context.Context) error
	if playCatalog != "" {
		fs, err := catalog.NewFileSource(playCatalog, log)
		if err != nil {
			return fmt.Errorf("catalog: %w", err)
		}
		src, watch = fs, fs.Watch
	}

	storeType, dsn := "memory", ""
	if playDB != "" {
		storeType, dsn = "sqlite", playDB
	}
	st, err := store.NewStore(ctx, storeType, dsn)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer st.Close()

	mgr := session.NewManager(session.Config{Engine: swipe.Options{Logger: log}}, src, st, log)
	defer mgr.Close()

	sess, err := mgr.Create(ctx, session.CreateOptions{Filter: f, Shuffle: playShuffle})
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return mgr.Run(gctx) })
	if watch != nil {
		g.Go(func() error { return watch(gctx) })
	}

	err = tui.Run(tui.NewLocal(sess), "pawswipe · local")
	cancel()
	if werr := g.Wait(); err == nil && werr != nil {
		err = werr
	}
	return err
}

func init() {
	rootCmd.AddCommand(playCmd)
	playFilter.bind(playCmd)
	playCmd.Flags().BoolVar(&playShuffle, "shuffle", false, "Shuffle the deck")
	playCmd.Flags().StringVar(&playSession, "session", "", "Join an existing server session")
	playCmd.Flags().BoolVar(&playLocal, "local", false, "Run the engine in-process")
	playCmd.Flags().StringVar(&playCatalog, "catalog", "", "Catalog file for --local (YAML or JSON)")
	playCmd.Flags().StringVar(&playDB, "db", "", "SQLite file for --local decisions (default in memory)")
	playCmd.MarkFlagsMutuallyExclusive("local", "session")
}
