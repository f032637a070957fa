// Command tradecore-sim plays headless games to completion through the
// service stack: configured snapshot storage, archiving, metrics and tracing.
// Every player agrees at once, bids nothing and passes each pick, which
// exercises the full stage cycle without strategy.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"tradecore/internal/archive"
	"tradecore/internal/blob"
	"tradecore/internal/catalog"
	"tradecore/internal/config"
	"tradecore/internal/core"
	"tradecore/internal/engine"
	"tradecore/pkg/domain"
)

var exitFunc = os.Exit

// maxCommands bounds a single game so a stuck stage cannot spin forever.
const maxCommands = 10000

// mockS3Driver selects the in-process S3 bucket as archive backend.
const mockS3Driver = "mock-s3"

type options struct {
	configPath string
	games      int
	species    string
	rounds     int
	storage    string
	archive    string
	metrics    string
	tracePath  string
	verbose    bool
}

func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("tradecore-sim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts options
	fs.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	fs.IntVar(&opts.games, "games", 1, "number of games to play")
	fs.StringVar(&opts.species, "species", "Caylion,Eni,Yengii", "comma separated species, one seat each")
	fs.IntVar(&opts.rounds, "rounds", 0, "override the configured end round")
	fs.StringVar(&opts.storage, "storage", "", "override the snapshot storage driver")
	fs.StringVar(&opts.archive, "archive", "", "override the archive blob driver (fs, s3, memory, mock-s3)")
	fs.StringVar(&opts.metrics, "metrics", "prometheus", "metrics exporter: prometheus, expvar or none")
	fs.StringVar(&opts.tracePath, "trace", "", "write command spans as JSON lines to this file")
	fs.BoolVar(&opts.verbose, "v", false, "log every command")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	if err := run(context.Background(), opts, stdout, logger); err != nil {
		logger.Error("simulation failed", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, opts options, stdout io.Writer, logger *slog.Logger) error {
	if opts.games < 1 {
		return fmt.Errorf("games must be positive, got %d", opts.games)
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.storage != "" {
		cfg.Storage.Driver = opts.storage
	}
	if opts.rounds > 0 {
		cfg.Game.EndRound = opts.rounds
	}
	archiveDriver := cfg.Blob.Driver
	if opts.archive != "" {
		archiveDriver = opts.archive
	}
	seats, err := parseSpecies(opts.species)
	if err != nil {
		return err
	}

	lib, err := loadCatalog(cfg.CatalogDir)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	store, err := core.OpenSnapshotStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open snapshot store: %w", err)
	}
	if closer, ok := store.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	svcOpts := []core.Option{
		core.WithLogger(logger),
		core.WithSnapshotStore(store),
		core.WithEndRound(cfg.Game.EndRound),
		core.WithTechSpreadDelay(cfg.Game.TechSpreadDelay),
	}
	var arch *archive.Archive
	if archiveDriver != "" {
		bs, err := openBlob(ctx, archiveDriver, cfg.Blob)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		arch = archive.New(bs)
		svcOpts = append(svcOpts, core.WithArchiver(arch))
	}

	var (
		registry *prometheus.Registry
		expvarRc *core.ExpvarMetricsRecorder
	)
	switch opts.metrics {
	case "prometheus":
		registry = prometheus.NewRegistry()
		rec, err := core.NewPrometheusMetricsRecorder(registry)
		if err != nil {
			return err
		}
		svcOpts = append(svcOpts, core.WithMetricsRecorder(rec))
	case "expvar":
		expvarRc = core.NewExpvarMetricsRecorder("")
		svcOpts = append(svcOpts, core.WithMetricsRecorder(expvarRc))
	case "none", "":
	default:
		return fmt.Errorf("unknown metrics exporter %q", opts.metrics)
	}
	if opts.tracePath != "" {
		f, err := os.Create(opts.tracePath)
		if err != nil {
			return fmt.Errorf("open trace file: %w", err)
		}
		defer func() { _ = f.Close() }()
		svcOpts = append(svcOpts, core.WithTracer(core.NewJSONTracer(f)))
	}

	svc := core.NewService(lib, svcOpts...)
	for i := 0; i < opts.games; i++ {
		snap, id, err := playGame(ctx, svc, fmt.Sprintf("sim-%d", i+1), seats)
		if err != nil {
			return err
		}
		if err := printStandings(stdout, id, snap); err != nil {
			return err
		}
	}

	if arch != nil {
		records, err := arch.List(ctx)
		if err != nil {
			return fmt.Errorf("list archive: %w", err)
		}
		if _, err := fmt.Fprintf(stdout, "archived %d game(s)\n", len(records)); err != nil {
			return err
		}
	}
	switch {
	case registry != nil:
		return writePrometheus(stdout, registry)
	case expvarRc != nil:
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(expvarRc.Snapshot())
	}
	return nil
}

func parseSpecies(list string) ([]string, error) {
	var out []string
	for _, sp := range strings.Split(list, ",") {
		if sp = strings.TrimSpace(sp); sp != "" {
			out = append(out, sp)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("at least one species is required")
	}
	return out, nil
}

func loadCatalog(dir string) (*catalog.Library, error) {
	if dir == "" {
		return catalog.Default()
	}
	return catalog.LoadDir(dir)
}

func openBlob(ctx context.Context, driver string, cfg config.Blob) (blob.Store, error) {
	if driver == mockS3Driver {
		return blob.NewMockS3(ctx)
	}
	cfg.Driver = driver
	return blob.Open(ctx, cfg)
}

// playGame seats one player per species, starts the game and drives it to
// the final standings.
func playGame(ctx context.Context, svc *core.Service, room string, seats []string) (domain.GameSnapshot, string, error) {
	id, err := svc.CreateGame(ctx, room)
	if err != nil {
		return domain.GameSnapshot{}, "", err
	}
	for i, sp := range seats {
		if _, err := svc.AddPlayer(ctx, id, sp, fmt.Sprintf("p%d", i+1)); err != nil {
			return domain.GameSnapshot{}, id, fmt.Errorf("seat %s: %w", sp, err)
		}
	}
	if _, err := svc.Start(ctx, id); err != nil {
		return domain.GameSnapshot{}, id, fmt.Errorf("start %s: %w", id, err)
	}
	for n := 0; n < maxCommands; n++ {
		snap, err := svc.Snapshot(ctx, id)
		if err != nil {
			return domain.GameSnapshot{}, id, err
		}
		if snap.Stage == domain.StageGameEnd {
			return snap, id, nil
		}
		if err := step(ctx, svc, id, snap); err != nil {
			return snap, id, fmt.Errorf("game %s round %d stage %s: %w", id, snap.CurrentRound, snap.Stage, err)
		}
	}
	return domain.GameSnapshot{}, id, fmt.Errorf("game %s did not finish within %d commands", id, maxCommands)
}

// step issues the single command that moves the game forward from snap.
func step(ctx context.Context, svc *core.Service, id string, snap domain.GameSnapshot) error {
	switch snap.Stage {
	case domain.StagePick:
		_, err := svc.SubmitPick(ctx, id, snap.CurrentPick.Player, engine.PassPick)
		return err
	case domain.StageDiscardColony:
		p, ok := snap.FindPlayer(snap.CurrentDiscardColonyPlayer)
		if !ok {
			return fmt.Errorf("discard queue names unknown player %q", snap.CurrentDiscardColonyPlayer)
		}
		_, err := svc.DiscardColonies(ctx, id, p.UserID, surplusColonies(p))
		return err
	}
	for _, p := range snap.Players {
		if p.Agreed {
			continue
		}
		var err error
		if snap.Stage == domain.StageBid {
			_, err = svc.SubmitBid(ctx, id, p.UserID, 0, 0)
		} else {
			_, err = svc.PlayerAgree(ctx, id, p.UserID)
		}
		return err
	}
	return fmt.Errorf("nobody can act in stage %q", snap.Stage)
}

// surplusColonies picks the colonies above the cap, by name order.
func surplusColonies(p domain.PlayerSnapshot) []string {
	var names []string
	for name, f := range p.Factories {
		if f.Kind() == domain.FeatureColony {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if over := len(names) - p.MaxColony; over > 0 {
		return names[:over]
	}
	return nil
}

func printStandings(w io.Writer, id string, snap domain.GameSnapshot) error {
	if _, err := fmt.Fprintf(w, "game %s finished after round %d\n", id, snap.CurrentRound); err != nil {
		return err
	}
	for _, s := range snap.Standings {
		if _, err := fmt.Fprintf(w, "  %d. %s (%s) score %d items %.1f\n", s.Rank, s.Player, s.Species, s.Score, s.ItemValue); err != nil {
			return err
		}
	}
	return nil
}

func writePrometheus(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
