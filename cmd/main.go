package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	tiledb "github.com/TileDB-Inc/TileDB-Go"
	"github.com/alitto/pond"
	"github.com/urfave/cli/v2"

	"github.com/sixy6e/occumap"
)

// staticPose is a TransformBuffer stand-in for a real pose source: every
// lookup resolves to the same fixed pose, enough to exercise undistortion
// and integration end to end from the CLI without a transport layer.
type staticPose struct {
	pose occumap.Transform3D
}

func (s staticPose) LookupTransform(targetFrame, sourceFrame string, tNsec int64) (occumap.Transform3D, bool) {
	return s.pose, true
}

// loadXYZT parses a newline-delimited "x y z offset_time_nsec" point file,
// the simplest possible stand-in for a real pointcloud message adapter.
func loadXYZT(path string) ([]occumap.PointXYZT, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var points []occumap.PointXYZT
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		x, err := strconv.ParseFloat(fields[0], 32)
		if err != nil {
			return nil, err
		}
		y, err := strconv.ParseFloat(fields[1], 32)
		if err != nil {
			return nil, err
		}
		z, err := strconv.ParseFloat(fields[2], 32)
		if err != nil {
			return nil, err
		}
		var offset int64
		if len(fields) >= 4 {
			offset, err = strconv.ParseInt(fields[3], 10, 64)
			if err != nil {
				return nil, err
			}
		}
		points = append(points, occumap.PointXYZT{
			X: occumap.F(x), Y: occumap.F(y), Z: occumap.F(z), OffsetTimeNsec: offset,
		})
	}
	return points, scanner.Err()
}

// newContext loads a TileDB config from config_uri (or the library default
// when empty) and builds a Context from it.
func newContext(config_uri string) (*tiledb.Config, *tiledb.Context, error) {
	var (
		config *tiledb.Config
		err    error
	)
	if config_uri == "" {
		config, err = tiledb.NewConfig()
	} else {
		config, err = tiledb.LoadConfig(config_uri)
	}
	if err != nil {
		return nil, nil, err
	}

	ctx, err := tiledb.NewContext(config)
	if err != nil {
		config.Free()
		return nil, nil, err
	}
	return config, ctx, nil
}

// loadOrNewOccupancy loads an existing occupancy map from map_uri, or
// starts a fresh one if none exists yet at that URI.
func loadOrNewOccupancy(ctx *tiledb.Context, map_uri string, treeHeight int, minCellWidth, minLogOdds, maxLogOdds float64) *occumap.HashedWaveletOctree {
	m, err := occumap.LoadOccupancy(ctx, map_uri, treeHeight, occumap.F(minCellWidth), occumap.F(minLogOdds), occumap.F(maxLogOdds))
	if err != nil {
		return occumap.NewHashedWaveletOctree(treeHeight, occumap.F(minCellWidth), occumap.F(minLogOdds), occumap.F(maxLogOdds))
	}
	return m
}

// integrateCloud loads (or starts) an occupancy map at map_uri, undistorts
// and integrates the pointcloud at cloud_uri against a static pose, and
// saves the updated map back to map_uri.
func integrateCloud(config_uri, cloud_uri, map_uri string, treeHeight int, minCellWidth, minLogOdds, maxLogOdds float64,
	px, py, pz float64, rows, cols int, azMinDeg, azMaxDeg, elMinDeg, elMaxDeg float64,
	minRange, maxRange, freeLogOdds, occLogOdds, surfaceThickness float64,
	terminationHeight int, terminationError float64, numWorkers int, undistort bool) error {

	config, ctx, err := newContext(config_uri)
	if err != nil {
		return err
	}
	defer config.Free()
	defer ctx.Free()

	points, err := loadXYZT(cloud_uri)
	if err != nil {
		return err
	}
	cloud := occumap.StampedPointcloud{SensorFrameID: "sensor", Points: points}

	pose := occumap.Identity3D()
	pose.T = occumap.Vec3{X: occumap.F(px), Y: occumap.F(py), Z: occumap.F(pz)}
	buf := staticPose{pose: pose}

	var posed occumap.PosedPointcloud
	if undistort {
		undistorter := occumap.NewUndistorter(buf, 4)
		var result occumap.UndistortResult
		posed, result = undistorter.Undistort(cloud, "world")
		if result != occumap.UndistortSuccess {
			return fmt.Errorf("undistort %s: %s", cloud_uri, result)
		}
	} else {
		pts := make([]occumap.Vec3, len(cloud.Points))
		for i, p := range cloud.Points {
			pts[i] = occumap.Vec3{X: p.X, Y: p.Y, Z: p.Z}
		}
		posed = occumap.PosedPointcloud{Pose: pose, Points: pts}
	}

	deg2rad := func(d float64) occumap.F { return occumap.F(d * 3.14159265358979 / 180) }
	projection := occumap.SphericalProjectionModel{
		Rows: rows, Cols: cols,
		AzimuthMin: deg2rad(azMinDeg), AzimuthMax: deg2rad(azMaxDeg),
		ElevationMin: deg2rad(elMinDeg), ElevationMax: deg2rad(elMaxDeg),
	}
	measurement := occumap.LogOddsMeasurementModel{
		FreeSpaceLogOdds: occumap.F(freeLogOdds),
		OccupiedLogOdds:  occumap.F(occLogOdds),
		SurfaceThickness: occumap.F(surfaceThickness),
	}

	m := loadOrNewOccupancy(ctx, map_uri, treeHeight, minCellWidth, minLogOdds, maxLogOdds)

	cfg := occumap.IntegratorConfig{
		TreeHeight: treeHeight, MinCellWidth: occumap.F(minCellWidth),
		MinRange: occumap.F(minRange), MaxRange: occumap.F(maxRange),
		TerminationHeight: terminationHeight, TerminationUpdateError: occumap.F(terminationError),
		MinLogOdds: occumap.F(minLogOdds), MaxLogOdds: occumap.F(maxLogOdds),
	}
	in := occumap.NewIntegrator(cfg, m, projection, measurement, numWorkers, slog.Default())
	defer in.Close()

	if err := in.Integrate(posed); err != nil {
		return err
	}

	return occumap.SaveOccupancy(ctx, map_uri, m)
}

// integrateList runs integrateCloud over every ".xyzt" file under dir
// against the same map_uri, fanning the directory out across a fixed pool
// of 2*NumCPU workers. Clouds are integrated sequentially against the
// shared map; only cloud loading/undistortion runs in the pool.
func integrateList(dir, map_uri, config_uri string, treeHeight int, minCellWidth, minLogOdds, maxLogOdds float64,
	px, py, pz float64, rows, cols int, azMinDeg, azMaxDeg, elMinDeg, elMaxDeg float64,
	minRange, maxRange, freeLogOdds, occLogOdds, surfaceThickness float64,
	terminationHeight int, terminationError float64, numWorkers int, undistort bool) error {

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	var items []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".xyzt" {
			items = append(items, filepath.Join(dir, e.Name()))
		}
	}
	log.Println("Number of pointclouds to process:", len(items))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	n := runtime.NumCPU() * 2
	pool := pond.New(n, 0, pond.MinWorkers(n), pond.Context(ctx))
	defer pool.StopAndWait()

	for _, name := range items {
		item_uri := name
		pool.Submit(func() {
			if err := integrateCloud(config_uri, item_uri, map_uri, treeHeight, minCellWidth, minLogOdds, maxLogOdds,
				px, py, pz, rows, cols, azMinDeg, azMaxDeg, elMinDeg, elMaxDeg,
				minRange, maxRange, freeLogOdds, occLogOdds, surfaceThickness,
				terminationHeight, terminationError, numWorkers, undistort); err != nil {
				slog.Error("integrate failed", "uri", item_uri, "err", err)
			}
		})
	}
	return nil
}

// mapSummary loads a map from map_uri and prints its MapSummary, optionally
// also writing it as JSON to jsonOutUri via the VFS-backed json.go writer.
func mapSummary(config_uri, map_uri, jsonOutUri string, treeHeight int, minCellWidth, minLogOdds, maxLogOdds float64) error {
	config, ctx, err := newContext(config_uri)
	if err != nil {
		return err
	}
	defer config.Free()
	defer ctx.Free()

	m, err := occumap.LoadOccupancy(ctx, map_uri, treeHeight, occumap.F(minCellWidth), occumap.F(minLogOdds), occumap.F(maxLogOdds))
	if err != nil {
		return err
	}

	s := occumap.Summarize(m, occumap.DefaultClassifier())
	fmt.Printf("blocks=%d nodes=%d leaves=%d occupied=%d free=%d unobserved=%d\n",
		s.NumBlocks, s.NumNodes, s.NumLeaves, s.NumOccupied, s.NumFree, s.NumUnobserved)
	fmt.Printf("extent min=%+v max=%+v\n", s.MinCorner, s.MaxCorner)

	if jsonOutUri != "" {
		if _, err := occumap.WriteJson(jsonOutUri, config_uri, s); err != nil {
			return err
		}
	}
	return nil
}

// mapCrop loads a map, discards every block farther than radius from
// center, and writes it back to out_uri.
func mapCrop(config_uri, map_uri, out_uri string, treeHeight int, minCellWidth, minLogOdds, maxLogOdds float64, cx, cy, cz, radius float64) error {
	config, ctx, err := newContext(config_uri)
	if err != nil {
		return err
	}
	defer config.Free()
	defer ctx.Free()

	m, err := occumap.LoadOccupancy(ctx, map_uri, treeHeight, occumap.F(minCellWidth), occumap.F(minLogOdds), occumap.F(maxLogOdds))
	if err != nil {
		return err
	}

	removed, err := occumap.CropVariant(m, occumap.Vec3{X: occumap.F(cx), Y: occumap.F(cy), Z: occumap.F(cz)}, occumap.F(radius))
	if err != nil {
		return err
	}
	log.Println("blocks removed:", removed)

	if out_uri == "" {
		out_uri = map_uri
	}
	return occumap.SaveOccupancy(ctx, out_uri, m)
}

// mapSdf loads an occupancy map, generates its signed distance field via
// bucketed wavefront propagation, and reports the resulting distance
// distribution.
func mapSdf(config_uri, map_uri string, treeHeight int, minCellWidth, minLogOdds, maxLogOdds, maxDistance float64) error {
	config, ctx, err := newContext(config_uri)
	if err != nil {
		return err
	}
	defer config.Free()
	defer ctx.Free()

	m, err := occumap.LoadOccupancy(ctx, map_uri, treeHeight, occumap.F(minCellWidth), occumap.F(minLogOdds), occumap.F(maxLogOdds))
	if err != nil {
		return err
	}

	gen := occumap.SDFGenerator{Classifier: occumap.DefaultClassifier(), MaxDistance: occumap.F(maxDistance)}
	sdf := gen.Generate(m)

	count, minDist, maxDist := 0, occumap.F(maxDistance), occumap.F(0)
	sdf.ForEachLeaf(func(_ occumap.OctreeIndex, v occumap.F) {
		count++
		if v < minDist {
			minDist = v
		}
		if v > maxDist {
			maxDist = v
		}
	})
	fmt.Printf("sdf cells=%d min=%v max=%v\n", count, minDist, maxDist)
	return nil
}

func integrateFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "cloud-uri", Usage: "URI or pathname to a newline-delimited x y z offset_time_nsec point file."},
		&cli.StringFlag{Name: "map-uri", Usage: "URI or pathname to the occupancy map being built or updated."},
		&cli.Float64Flag{Name: "pose-x"},
		&cli.Float64Flag{Name: "pose-y"},
		&cli.Float64Flag{Name: "pose-z"},
		&cli.IntFlag{Name: "rows", Value: 64, Usage: "Range image rows (elevation channels)."},
		&cli.IntFlag{Name: "cols", Value: 1024, Usage: "Range image columns (azimuth samples per revolution)."},
		&cli.Float64Flag{Name: "azimuth-min", Value: -180},
		&cli.Float64Flag{Name: "azimuth-max", Value: 180},
		&cli.Float64Flag{Name: "elevation-min", Value: -25},
		&cli.Float64Flag{Name: "elevation-max", Value: 15},
		&cli.Float64Flag{Name: "min-range", Value: 0.5},
		&cli.Float64Flag{Name: "max-range", Value: 100},
		&cli.Float64Flag{Name: "free-log-odds", Value: -0.4},
		&cli.Float64Flag{Name: "occupied-log-odds", Value: 0.85},
		&cli.Float64Flag{Name: "surface-thickness", Value: 0.1},
		&cli.IntFlag{Name: "termination-height", Value: 0},
		&cli.Float64Flag{Name: "termination-error", Value: 0.01},
		&cli.IntFlag{Name: "workers", Value: runtime.NumCPU()},
		&cli.BoolFlag{Name: "undistort"},
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config-uri", Usage: "URI or pathname to a TileDB config file."},
		&cli.IntFlag{Name: "tree-height", Value: 6, Usage: "Octree height of the stored map."},
		&cli.Float64Flag{Name: "min-cell-width", Value: 0.1, Usage: "Leaf cell width, in meters."},
		&cli.Float64Flag{Name: "min-log-odds", Value: -4, Usage: "Clamp floor for occupancy log-odds."},
		&cli.Float64Flag{Name: "max-log-odds", Value: 4, Usage: "Clamp ceiling for occupancy log-odds."},
	}
}

func main() {
	app := &cli.App{
		Commands: []*cli.Command{
			{
				Name: "summary",
				Flags: append(commonFlags(),
					&cli.StringFlag{Name: "map-uri", Usage: "URI or pathname to a TileDB occupancy map."},
					&cli.StringFlag{Name: "json-out", Usage: "Optional URI to also write the summary as JSON."},
				),
				Action: func(cCtx *cli.Context) error {
					return mapSummary(cCtx.String("config-uri"), cCtx.String("map-uri"), cCtx.String("json-out"), cCtx.Int("tree-height"),
						cCtx.Float64("min-cell-width"), cCtx.Float64("min-log-odds"), cCtx.Float64("max-log-odds"))
				},
			},
			{
				Name: "crop",
				Flags: append(commonFlags(),
					&cli.StringFlag{Name: "map-uri", Usage: "URI or pathname to a TileDB occupancy map."},
					&cli.StringFlag{Name: "out-uri", Usage: "Destination URI. Defaults to map-uri (in place)."},
					&cli.Float64Flag{Name: "center-x"},
					&cli.Float64Flag{Name: "center-y"},
					&cli.Float64Flag{Name: "center-z"},
					&cli.Float64Flag{Name: "radius", Value: 10, Usage: "Blocks farther than this from center are discarded."},
				),
				Action: func(cCtx *cli.Context) error {
					return mapCrop(cCtx.String("config-uri"), cCtx.String("map-uri"), cCtx.String("out-uri"), cCtx.Int("tree-height"),
						cCtx.Float64("min-cell-width"), cCtx.Float64("min-log-odds"), cCtx.Float64("max-log-odds"),
						cCtx.Float64("center-x"), cCtx.Float64("center-y"), cCtx.Float64("center-z"), cCtx.Float64("radius"))
				},
			},
			{
				Name:  "integrate",
				Flags: append(commonFlags(), integrateFlags()...),
				Action: func(cCtx *cli.Context) error {
					return integrateCloud(cCtx.String("config-uri"), cCtx.String("cloud-uri"), cCtx.String("map-uri"),
						cCtx.Int("tree-height"), cCtx.Float64("min-cell-width"), cCtx.Float64("min-log-odds"), cCtx.Float64("max-log-odds"),
						cCtx.Float64("pose-x"), cCtx.Float64("pose-y"), cCtx.Float64("pose-z"),
						cCtx.Int("rows"), cCtx.Int("cols"), cCtx.Float64("azimuth-min"), cCtx.Float64("azimuth-max"),
						cCtx.Float64("elevation-min"), cCtx.Float64("elevation-max"),
						cCtx.Float64("min-range"), cCtx.Float64("max-range"),
						cCtx.Float64("free-log-odds"), cCtx.Float64("occupied-log-odds"), cCtx.Float64("surface-thickness"),
						cCtx.Int("termination-height"), cCtx.Float64("termination-error"), cCtx.Int("workers"), cCtx.Bool("undistort"))
				},
			},
			{
				Name:  "batch",
				Flags: append(commonFlags(), append(integrateFlags(), &cli.StringFlag{Name: "dir", Usage: "Directory containing *.xyzt pointcloud files."})...),
				Action: func(cCtx *cli.Context) error {
					return integrateList(cCtx.String("dir"), cCtx.String("map-uri"), cCtx.String("config-uri"),
						cCtx.Int("tree-height"), cCtx.Float64("min-cell-width"), cCtx.Float64("min-log-odds"), cCtx.Float64("max-log-odds"),
						cCtx.Float64("pose-x"), cCtx.Float64("pose-y"), cCtx.Float64("pose-z"),
						cCtx.Int("rows"), cCtx.Int("cols"), cCtx.Float64("azimuth-min"), cCtx.Float64("azimuth-max"),
						cCtx.Float64("elevation-min"), cCtx.Float64("elevation-max"),
						cCtx.Float64("min-range"), cCtx.Float64("max-range"),
						cCtx.Float64("free-log-odds"), cCtx.Float64("occupied-log-odds"), cCtx.Float64("surface-thickness"),
						cCtx.Int("termination-height"), cCtx.Float64("termination-error"), cCtx.Int("workers"), cCtx.Bool("undistort"))
				},
			},
			{
				Name:  "sdf",
				Flags: append(commonFlags(),
					&cli.StringFlag{Name: "map-uri", Usage: "URI or pathname to a TileDB occupancy map."},
					&cli.Float64Flag{Name: "max-distance", Value: 2, Usage: "Truncation distance for the signed distance field."},
				),
				Action: func(cCtx *cli.Context) error {
					return mapSdf(cCtx.String("config-uri"), cCtx.String("map-uri"), cCtx.Int("tree-height"),
						cCtx.Float64("min-cell-width"), cCtx.Float64("min-log-odds"), cCtx.Float64("max-log-odds"), cCtx.Float64("max-distance"))
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Fatal(err)
	}
}
