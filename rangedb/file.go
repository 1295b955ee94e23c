package rangedb

import (
	"context"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
)

// FileOption configures SaveToFile/LoadFromFile/SaveToBucket/LoadFromBucket.
type FileOption func(*fileOptions)

type fileOptions struct {
	progress bool
}

// WithProgress draws a terminal progress bar while the file or bucket
// object is written or read, mirroring the teacher's edit.go use of
// schollz/progressbar wrapped around an io.Writer.
func WithProgress() FileOption {
	return func(o *fileOptions) { o.progress = true }
}

func applyOptions(opts []FileOption) fileOptions {
	var o fileOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// SaveToFile serializes db and writes it to filename on the local
// filesystem, overwriting any existing file.
func (db *DB) SaveToFile(filename string, opts ...FileOption) error {
	o := applyOptions(opts)
	buf, err := db.Serialize()
	if err != nil {
		return err
	}

	f, err := os.Create(filename)
	if err != nil {
		return newErr(KindIO, "creating "+filename, err)
	}
	defer f.Close()

	var w io.Writer = f
	if o.progress {
		bar := progressbar.DefaultBytes(int64(len(buf)), "saving "+filename)
		w = io.MultiWriter(f, bar)
	}
	if _, err := w.Write(buf); err != nil {
		return newErr(KindIO, "writing "+filename, err)
	}
	return nil
}

// LoadFromFile reads and deserializes a DB previously written by
// SaveToFile.
func LoadFromFile(filename string, opts ...FileOption) (*DB, error) {
	o := applyOptions(opts)

	f, err := os.Open(filename)
	if err != nil {
		return nil, newErr(KindIO, "opening "+filename, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, newErr(KindIO, "statting "+filename, err)
	}

	var r io.Reader = f
	if o.progress {
		bar := progressbar.DefaultBytes(info.Size(), "loading "+filename)
		r = io.TeeReader(f, bar)
	}
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, newErr(KindIO, "reading "+filename, err)
	}
	return Deserialize(buf)
}

// SaveToBucket serializes db and writes it to key in the bucket addressed
// by bucketURL (e.g. "file:///var/data"). Only the fileblob driver is wired
// by default;
// other gocloud.dev drivers can be registered by importing their packages
// for side effects, same as the teacher's OpenBucket.
func (db *DB) SaveToBucket(ctx context.Context, bucketURL, key string, opts ...FileOption) error {
	o := applyOptions(opts)
	buf, err := db.Serialize()
	if err != nil {
		return err
	}

	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return newErr(KindIO, "opening bucket "+bucketURL, err)
	}
	defer bucket.Close()

	w, err := bucket.NewWriter(ctx, key, nil)
	if err != nil {
		return newErr(KindIO, "opening writer for "+key, err)
	}

	var dst io.Writer = w
	if o.progress {
		bar := progressbar.DefaultBytes(int64(len(buf)), "saving "+key)
		dst = io.MultiWriter(w, bar)
	}
	if _, err := dst.Write(buf); err != nil {
		w.Close()
		return newErr(KindIO, "writing "+key, err)
	}
	if err := w.Close(); err != nil {
		return newErr(KindIO, "closing writer for "+key, err)
	}
	return nil
}

// LoadFromBucket reads and deserializes a DB previously written by
// SaveToBucket.
func LoadFromBucket(ctx context.Context, bucketURL, key string, opts ...FileOption) (*DB, error) {
	o := applyOptions(opts)

	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, newErr(KindIO, "opening bucket "+bucketURL, err)
	}
	defer bucket.Close()

	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		return nil, newErr(KindIO, "opening reader for "+key, err)
	}
	defer r.Close()

	var src io.Reader = r
	if o.progress {
		bar := progressbar.DefaultBytes(r.Size(), "loading "+key)
		src = io.TeeReader(r, bar)
	}
	buf, err := io.ReadAll(src)
	if err != nil {
		return nil, newErr(KindIO, "reading "+key, err)
	}
	return Deserialize(buf)
}
