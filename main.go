package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/flatfile-labs/rangedb/rangedb"
)

type CLI struct {
	Inspect InspectCmd `cmd:"" help:"Print table and entry-size summaries for a rangedb file."`
	Dump    DumpCmd    `cmd:"" help:"Print every entry in a table intersecting a range."`
	Merge   MergeCmd   `cmd:"" help:"Merge several rangedb files into one, through the bitmap algebra."`
	Query   QueryCmd   `cmd:"" help:"Query objects or bitmaps in a single table."`
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("rangedb"),
		kong.Description("Inspect, merge, and query range-keyed rangedb files."),
		kong.UsageOnError(),
	)
	if err := ctx.Run(logger); err != nil {
		logger.Error("command failed", zap.String("command", ctx.Command()), zap.Error(err))
		os.Exit(1)
	}
}

type InspectCmd struct {
	File string `arg:"" help:"Path to a rangedb file." type:"existingfile"`
}

func (c *InspectCmd) Run(logger *zap.Logger) error {
	db, err := rangedb.LoadFromFile(c.File)
	if err != nil {
		return fmt.Errorf("loading %s: %w", c.File, err)
	}

	info, err := os.Stat(c.File)
	if err != nil {
		return err
	}
	logger.Info("loaded db",
		zap.String("file", c.File),
		zap.String("size", humanize.Bytes(uint64(info.Size()))),
	)

	for _, name := range db.TableNames() {
		objects, bitmaps := db.TableCounts(name)
		fmt.Printf("table %q: %d object entries, %d bitmap entries\n", name, objects, bitmaps)
		objectEntries := db.Table(name).ObjectEntries()
		distinct := make(map[uint64]struct{})
		for _, e := range objectEntries {
			distinct[rangedb.Fingerprint(e.Object.Data)] = struct{}{}
		}
		fmt.Printf("  %d distinct object payloads, %d duplicates\n", len(distinct), len(objectEntries)-len(distinct))
		for _, entrySize := range db.BitmapEntrySizes(name) {
			occ := db.Table(name).Occupancy(entrySize)
			fmt.Printf("  entry_size=%d: %s keys occupied\n", entrySize, humanize.Comma(int64(occ.Cardinality())))
		}
	}
	return nil
}

type DumpCmd struct {
	File  string `arg:"" help:"Path to a rangedb file." type:"existingfile"`
	Table string `arg:"" help:"Table name to dump."`
	Min   uint64 `help:"Range start (inclusive)." default:"0"`
	Max   uint64 `help:"Range end (inclusive)." default:"18446744073709551615"`
}

func (c *DumpCmd) Run(logger *zap.Logger) error {
	db, err := rangedb.LoadFromFile(c.File)
	if err != nil {
		return fmt.Errorf("loading %s: %w", c.File, err)
	}
	r := rangedb.NewRng(c.Min, c.Max)

	objects, ok := db.QueryObject(c.Table, r)
	if !ok {
		return fmt.Errorf("no such table %q", c.Table)
	}
	for _, e := range objects {
		fmt.Printf("object %s: %s\n", e.Range, humanize.Bytes(uint64(len(e.Object.Data))))
	}

	iter, _ := db.QueryBitmap(c.Table, r)
	for {
		entry, ok := iter.Next()
		if !ok {
			break
		}
		fmt.Printf("bitmap %s: entry_size=%d %s\n", entry.Range, entry.Slice.EntrySize, humanize.Bytes(uint64(len(entry.Slice.Data))))
	}
	return nil
}

type MergeCmd struct {
	Out    string   `arg:"" help:"Output rangedb file."`
	Inputs []string `arg:"" name:"input" help:"Input rangedb files to merge." type:"existingfile"`
}

// Run loads every input file concurrently, then folds them one at a time
// into a single DB. Loading is the I/O-bound, embarrassingly parallel part;
// the merge itself runs sequentially because InsertBitmap mutates shared
// tree state.
func (c *MergeCmd) Run(logger *zap.Logger) error {
	if len(c.Inputs) == 0 {
		return fmt.Errorf("merge requires at least one input file")
	}

	loaded := make([]*rangedb.DB, len(c.Inputs))
	g, _ := errgroup.WithContext(context.Background())
	for i, path := range c.Inputs {
		i, path := i, path
		g.Go(func() error {
			db, err := rangedb.LoadFromFile(path)
			if err != nil {
				return fmt.Errorf("loading %s: %w", path, err)
			}
			loaded[i] = db
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := rangedb.New()
	for i, db := range loaded {
		logger.Info("merging", zap.String("file", c.Inputs[i]), zap.Int("tables", len(db.TableNames())))
		mergeInto(out, db)
	}

	if err := out.SaveToFile(c.Out, rangedb.WithProgress()); err != nil {
		return fmt.Errorf("saving %s: %w", c.Out, err)
	}
	return nil
}

// mergeInto folds src's tables into dst, re-running every insert through
// dst's algebra: object inserts simply coexist, bitmap inserts merge with
// whatever dst already holds at that entry size and range.
func mergeInto(dst, src *rangedb.DB) {
	for _, name := range src.TableNames() {
		tbl := src.Table(name)
		for _, e := range tbl.ObjectEntries() {
			dst.InsertObject(name, e.Range, e.Object)
		}
		for _, e := range tbl.BitmapEntries() {
			dst.InsertBitmap(name, e.Range, e.Bitmap)
		}
	}
}

type QueryCmd struct {
	File  string `arg:"" help:"Path to a rangedb file." type:"existingfile"`
	Table string `arg:"" help:"Table name."`
	Min   uint64 `arg:"" help:"Range start (inclusive)."`
	Max   uint64 `arg:"" help:"Range end (inclusive)."`
	Kind  string `help:"object or bitmap." enum:"object,bitmap" default:"object"`
}

func (c *QueryCmd) Run(logger *zap.Logger) error {
	db, err := rangedb.LoadFromFile(c.File)
	if err != nil {
		return fmt.Errorf("loading %s: %w", c.File, err)
	}
	r := rangedb.NewRng(c.Min, c.Max)

	switch c.Kind {
	case "object":
		entries, ok := db.QueryObject(c.Table, r)
		if !ok {
			return fmt.Errorf("no such table %q", c.Table)
		}
		for _, e := range entries {
			fmt.Printf("%s: %q\n", e.Range, e.Object.Data)
		}
	case "bitmap":
		iter, ok := db.QueryBitmap(c.Table, r)
		if !ok {
			return fmt.Errorf("no such table %q", c.Table)
		}
		for {
			entry, ok := iter.Next()
			if !ok {
				break
			}
			fmt.Printf("%s: %q\n", entry.Range, entry.Slice.Data)
		}
	}
	return nil
}
