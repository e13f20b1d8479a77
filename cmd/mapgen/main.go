package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"wavemap/internal/encoding"
	"wavemap/internal/gen/catalogs"
	"wavemap/internal/gen/tuning"
	"wavemap/internal/gen/wave"
	persistlog "wavemap/internal/persistence/log"
	"wavemap/internal/persistence/mapdb"
	"wavemap/internal/progressproto"
	"wavemap/internal/transport/progress"
)

func main() {
	var (
		runID      = flag.String("run", "run_1", "run id")
		seed       = flag.Int64("seed", 0, "seed override (0: use tuning.yaml)")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		extent     = flag.Int("extent", 0, "default-extent override (0: use tuning.yaml)")
		traceOn    = flag.Bool("trace", true, "write compressed solve trace")
		progAddr   = flag.String("progress_listen", "", "progress observer http listen address (empty to disable)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[mapgen] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}
	if *seed != 0 {
		tune.Seed = *seed
	}
	if *extent > 0 {
		tune.DefaultExtent = *extent
	}

	cfg := wave.Config{
		Height:        tune.Height,
		DefaultExtent: tune.DefaultExtent,
		RangeLimit:    tune.RangeLimit,
		RangeLimitCenter: wave.Coord{
			X: tune.RangeLimitCenter[0],
			Y: tune.RangeLimitCenter[1],
			Z: tune.RangeLimitCenter[2],
		},
		EnableExclusions: tune.EnableExclusions,
		Seed:             tune.Seed,
	}
	m, err := wave.New(cfg, cats)
	if err != nil {
		logger.Fatalf("new map: %v", err)
	}

	runDir := filepath.Join(*dataDir, "runs", *runID)
	store, err := mapdb.Open(filepath.Join(runDir, "map.db"))
	if err != nil {
		logger.Fatalf("open map db: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Printf("close map db: %v", err)
		}
	}()
	store.PutMeta("run_id", *runID)
	store.PutMeta("seed", fmt.Sprintf("%d", cfg.Seed))
	store.PutMeta("prototypes_digest", cats.Prototypes.DefsDigest)
	store.PutMeta("columns_digest", cats.Columns.Digest)
	store.PutMeta("default_extent", fmt.Sprintf("%d", cfg.DefaultExtent))

	if *traceOn {
		tl := persistlog.NewSolveLogger(runDir)
		defer tl.Close()
		m.SetTrace(func(e wave.TraceEntry) {
			if err := tl.WriteTrace(e); err != nil {
				logger.Printf("trace write: %v", err)
			}
		})
	}

	if addr := strings.TrimSpace(*progAddr); addr != "" {
		srv := progress.NewServer(*runID, progressproto.GenParams{
			Height:           cfg.Height,
			DefaultExtent:    cfg.DefaultExtent,
			RangeLimit:       cfg.RangeLimit,
			RangeLimitCenter: tune.RangeLimitCenter,
			Seed:             cfg.Seed,
		}, cats.Prototypes.Palette, logger)
		mux := http.NewServeMux()
		mux.HandleFunc("/v1/progress/bootstrap", srv.BootstrapHandler())
		mux.HandleFunc("/v1/progress/ws", srv.WSHandler())
		go func() {
			logger.Printf("progress observer listening on %s", addr)
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.Printf("progress server: %v", err)
			}
		}()
		m.SetProgress(srv.Publish)
	}

	start := time.Now()
	m.CollapseDefaultArea()
	logger.Printf("solve finished in %s: collapsed=%d failures=%d slots=%d",
		time.Since(start).Round(time.Millisecond), m.CollapsedCount(), m.FailureCount(), m.SlotCount())

	cells := &cellCollector{store: store, byCoord: map[wave.Coord]uint16{}, index: cats.Prototypes.Index}
	batch := tune.BuildBatch
	if batch <= 0 {
		batch = 4096
	}
	built := 0
	for m.Builds().Len() > 0 {
		built += m.Builds().Drain(batch, cells)
	}
	logger.Printf("materialized %d cells", built)

	exportLayers(m, cells, store)
	store.Flush()

	for _, c := range m.FailureCoords() {
		logger.Printf("unresolved contradiction at %v", c)
	}
}

// cellCollector tees built cells into the store and keeps them in memory
// for the dense layer export.
type cellCollector struct {
	store   *mapdb.Store
	byCoord map[wave.Coord]uint16
	index   map[string]uint16

	min, max wave.Coord
	any      bool
}

func (cc *cellCollector) Build(c wave.Coord, p *catalogs.Prototype) {
	cc.store.Build(c, p)
	cc.byCoord[c] = cc.index[p.ID]
	if !cc.any {
		cc.min, cc.max = c, c
		cc.any = true
		return
	}
	if c.X < cc.min.X {
		cc.min.X = c.X
	}
	if c.Z < cc.min.Z {
		cc.min.Z = c.Z
	}
	if c.X > cc.max.X {
		cc.max.X = c.X
	}
	if c.Z > cc.max.Z {
		cc.max.Z = c.Z
	}
}

func exportLayers(m *wave.Map, cc *cellCollector, store *mapdb.Store) {
	if !cc.any {
		return
	}
	sx := cc.max.X - cc.min.X + 1
	sz := cc.max.Z - cc.min.Z + 1
	// 0xFFFF marks cells never materialized; palette ids start at 0.
	const absent = uint16(0xFFFF)
	for y := 0; y < m.Config().Height; y++ {
		ids := make([]uint16, sx*sz)
		for i := range ids {
			ids[i] = absent
		}
		hit := false
		for z := 0; z < sz; z++ {
			for x := 0; x < sx; x++ {
				c := wave.Coord{X: cc.min.X + x, Y: y, Z: cc.min.Z + z}
				if id, ok := cc.byCoord[c]; ok {
					ids[x+z*sx] = id
					hit = true
				}
			}
		}
		if !hit {
			continue
		}
		store.WriteLayer(y, cc.min.X, cc.min.Z, sx, sz, encoding.EncodeRLE(ids))
	}
}
