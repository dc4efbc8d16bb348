package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mdobak/go-xerrors"
	"gocv.io/x/gocv"

	"github.com/swdee/go-orgtrack"
	"github.com/swdee/go-orgtrack/config"
	"github.com/swdee/go-orgtrack/export"
	"github.com/swdee/go-orgtrack/postprocess/result"
	"github.com/swdee/go-orgtrack/preprocess"
	"github.com/swdee/go-orgtrack/render"
	"github.com/swdee/go-orgtrack/tracker"
)

// imageExts are the probability image formats read from the input directory
var imageExts = map[string]bool{".png": true, ".tif": true, ".tiff": true, ".jpg": true}

func main() {

	// values in a .env file become the flag defaults
	_ = godotenv.Load()

	inDir := flag.String("d", env("ORGTRACK_INPUT", "../data/organoids"), "Directory of probability images, one per frame in name order")
	outDir := flag.String("o", env("ORGTRACK_OUTPUT", "../data/organoids-out"), "Output directory")
	cfgFile := flag.String("c", env("ORGTRACK_CONFIG", ""), "Optional JSON configuration file")
	dbFile := flag.String("db", env("ORGTRACK_DB", ""), "Optional SQLite database to store the track table in")
	work := flag.Int("w", 0, "Working width to resize frames to for labeling, 0 keeps the source size")
	batch := flag.Bool("batch", false, "Treat each subdirectory of -d as its own sequence")
	workers := flag.Int("j", 2, "Number of sequences to track in parallel in batch mode")
	verbose := flag.Bool("v", false, "Log every frame")

	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(logger, *inDir, *outDir, *cfgFile, *dbFile, *work, *batch, *workers); err != nil {
		logger.Error("tracking failed", slog.Any("error", xerrors.New(err)))
		os.Exit(1)
	}
}

// env returns the environment variable or def when unset
func env(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func run(logger *slog.Logger, inDir, outDir, cfgFile, dbFile string, work int,
	batch bool, workers int) error {

	cfg := config.Defaults()

	if cfgFile != "" {
		var err error
		if cfg, err = config.Load(cfgFile); err != nil {
			return err
		}
	}

	params, err := pipelineParams(cfg, logger)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var store *export.Store

	if dbFile != "" {
		if store, err = export.Open(dbFile); err != nil {
			return err
		}
		defer store.Close()
	}

	if batch {
		return runBatch(logger, params, inDir, outDir, workers, store)
	}

	return runSequence(logger, params, inDir, outDir, work, store)
}

// pipelineParams converts the configuration to pipeline parameters
func pipelineParams(cfg *config.Config, logger *slog.Logger) (orgtrack.Params, error) {

	lp, err := cfg.LabelParams()
	if err != nil {
		return orgtrack.Params{}, err
	}

	tp, err := cfg.TrackerParams()
	if err != nil {
		return orgtrack.Params{}, err
	}

	return orgtrack.Params{
		Label:       lp,
		PostProcess: cfg.PostProcessParams(),
		Tracker:     tp,
		Logger:      logger,
	}, nil
}

// listImages returns the image files of dir in name order
func listImages(dir string) ([]string, error) {

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("error reading image directory: %w", err)
	}

	var files []string

	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}

	sort.Strings(files)

	if len(files) == 0 {
		return nil, fmt.Errorf("no images found in %s", dir)
	}

	return files, nil
}

// readProbability loads a single channel probability image
func readProbability(file string) (*result.ProbabilityMap, gocv.Mat, error) {

	img := gocv.IMRead(file, gocv.IMReadUnchanged)

	if img.Empty() {
		return nil, img, fmt.Errorf("error reading image from %s", file)
	}

	if img.Channels() != 1 {
		gray := gocv.NewMat()
		gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
		img.Close()
		img = gray
	}

	prob, err := preprocess.FromMat(img)
	if err != nil {
		return nil, img, fmt.Errorf("%s: %w", file, err)
	}

	return prob, img, nil
}

// runSequence tracks a single directory of frames and writes label images,
// overlays, an animated GIF, the track table and an area chart
func runSequence(logger *slog.Logger, params orgtrack.Params, inDir, outDir string,
	work int, store *export.Store) error {

	files, err := listImages(inDir)
	if err != nil {
		return err
	}

	pipe, err := orgtrack.NewPipeline(params)
	if err != nil {
		return err
	}

	for _, sub := range []string{"labels", "overlay"} {
		if err := os.MkdirAll(filepath.Join(outDir, sub), 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	var resizer *preprocess.Resizer
	trail := tracker.NewTrail(30)
	style := render.DefaultStyle()
	gifFrames := make([]image.Image, 0, len(files))

	for f, file := range files {

		prob, img, err := readProbability(file)
		if err != nil {
			img.Close()
			return err
		}

		// scale to the working resolution keeping aspect
		if work > 0 && resizer == nil {
			h := prob.Height() * work / prob.Width()
			resizer = preprocess.NewResizer(prob.Width(), prob.Height(), work, h)
			defer resizer.Close()
		}

		if resizer != nil {
			if prob, err = resizer.Probability(prob); err != nil {
				img.Close()
				return err
			}
			gocv.Resize(img, &img, image.Pt(prob.Width(), prob.Height()), 0, 0,
				gocv.InterpolationArea)
		}

		out, err := pipe.Process(prob)
		if err != nil {
			img.Close()
			return fmt.Errorf("%s: %w", file, err)
		}

		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)) + ".png"

		labels := out.Labels
		if resizer != nil {
			if labels, err = resizer.Labels(labels); err != nil {
				img.Close()
				return err
			}
		}

		if err := writePNG(filepath.Join(outDir, "labels", name), render.LabelGray16(labels)); err != nil {
			img.Close()
			return err
		}

		tracks := pipe.Session().Tracks()
		trail.AddAll(tracks)

		overlay, err := drawOverlay(img, tracks, f, trail, style)
		img.Close()
		if err != nil {
			return err
		}

		if ok := gocv.IMWrite(filepath.Join(outDir, "overlay", name), overlay); !ok {
			overlay.Close()
			return fmt.Errorf("failed to write overlay for %s", file)
		}

		base, err := overlay.ToImage()
		overlay.Close()
		if err != nil {
			return fmt.Errorf("failed to convert overlay: %w", err)
		}
		gifFrames = append(gifFrames, base)

		logger.Debug("frame written", slog.String("file", name),
			slog.Int("labels", out.Labels.Max()))
	}

	if err := writeGIF(filepath.Join(outDir, "tracks.gif"), gifFrames); err != nil {
		return err
	}

	sess := pipe.Session()
	name := filepath.Base(inDir)

	if err := writeTables(outDir, name, sess, store); err != nil {
		return err
	}

	logger.Info("tracking complete",
		slog.String("session", sess.ID().String()),
		slog.Int("frames", sess.Frame()),
		slog.Int("tracks", len(sess.Tracks())),
	)

	return nil
}

// drawOverlay renders the tracks and trails of frame on a color copy of img
func drawOverlay(img gocv.Mat, tracks []*tracker.Track, frame int,
	trail *tracker.Trail, style render.Style) (gocv.Mat, error) {

	overlay := gocv.NewMat()

	// 16 bit probability images are scaled down for display
	display := img
	if img.Type() != gocv.MatTypeCV8U {
		display = gocv.NewMat()
		defer display.Close()
		gocv.Normalize(img, &display, 0, 255, gocv.NormMinMax)
		display.ConvertTo(&display, gocv.MatTypeCV8U)
	}

	gocv.CvtColor(display, &overlay, gocv.ColorGrayToBGR)

	if err := render.Tracks(&overlay, tracks, frame, style); err != nil {
		overlay.Close()
		return overlay, err
	}

	render.Trail(&overlay, tracks, trail, render.DefaultTrailStyle())

	return overlay, nil
}

// runBatch tracks each subdirectory of inDir as an independent sequence
func runBatch(logger *slog.Logger, params orgtrack.Params, inDir, outDir string,
	workers int, store *export.Store) error {

	entries, err := os.ReadDir(inDir)
	if err != nil {
		return fmt.Errorf("error reading batch directory: %w", err)
	}

	var seqs []orgtrack.Sequence

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}

		files, err := listImages(filepath.Join(inDir, e.Name()))
		if err != nil {
			return err
		}

		seqs = append(seqs, orgtrack.Sequence{
			Name: e.Name(),
			Len:  len(files),
			Frame: func(i int) (*result.ProbabilityMap, error) {
				prob, img, err := readProbability(files[i])
				img.Close()
				return prob, err
			},
		})
	}

	b, err := orgtrack.NewBatch(params, workers)
	if err != nil {
		return err
	}
	defer b.Close()

	results, err := b.Run(context.Background(), seqs)
	if err != nil {
		return err
	}

	for _, res := range results {
		dir := filepath.Join(outDir, res.Name)

		if err := os.MkdirAll(filepath.Join(dir, "labels"), 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		for i, lm := range res.Labels {
			file := filepath.Join(dir, "labels", fmt.Sprintf("%04d.png", i))
			if err := writePNG(file, render.LabelGray16(lm)); err != nil {
				return err
			}
		}

		if err := writeTables(dir, res.Name, res.Session, store); err != nil {
			return err
		}

		logger.Info("sequence written", slog.String("sequence", res.Name),
			slog.Int("tracks", len(res.Session.Tracks())))
	}

	return nil
}

// writeTables writes the CSV track table and area chart of a session and
// stores it in the database when one is open
func writeTables(dir, name string, sess *tracker.Session, store *export.Store) error {

	f, err := os.Create(filepath.Join(dir, "tracks.csv"))
	if err != nil {
		return fmt.Errorf("failed to create csv: %w", err)
	}

	if err := export.WriteCSV(f, export.Rows(sess)); err != nil {
		f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close csv: %w", err)
	}

	series := export.AreaSeries(sess.Tracks())

	if err := export.PlotAreas(series, name+" organoid area", filepath.Join(dir, "areas.png")); err != nil {
		return err
	}

	if store != nil {
		if err := store.SaveSession(sess, name); err != nil {
			return err
		}
	}

	return nil
}

func writePNG(file string, img image.Image) error {

	f, err := os.Create(file)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", file, err)
	}

	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", file, err)
	}

	return f.Close()
}

func writeGIF(file string, frames []image.Image) error {

	f, err := os.Create(file)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", file, err)
	}

	if err := render.WriteGIF(f, frames, 20); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
