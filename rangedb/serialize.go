package rangedb

import (
	"bytes"
	"unicode/utf8"

	"github.com/vmihailenco/msgpack/v5"
)

// Wire format (see SPEC_FULL.md section 4.10):
//
//	Bitmap              = array(2) [entry_size:uint, data:bin]
//	Object               = bin
//	IntervalTree<T>      = array(3*n) [min:uint, max:uint, T, ...]  (length is
//	                       3n, not n -- preserved from the reference encoding)
//	map[string]Tree<T>   = map(n) {table_name:str -> IntervalTree<T>}, table
//	                       names written in sorted order
//	DB                   = array(2) [objects:map, bitmaps:map]

func writeBitmap(enc *msgpack.Encoder, b Bitmap) error {
	if err := enc.EncodeArrayLen(2); err != nil {
		return err
	}
	if err := enc.EncodeUint(b.EntrySize); err != nil {
		return err
	}
	return enc.EncodeBytes(b.Data)
}

func readBitmap(dec *msgpack.Decoder) (Bitmap, error) {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return Bitmap{}, newErr(KindFileFormat, "reading bitmap array header", err)
	}
	if n != 2 {
		return Bitmap{}, newErr(KindFileFormat, "bitmap should have length 2", nil)
	}
	entrySize, err := dec.DecodeUint64()
	if err != nil {
		return Bitmap{}, newErr(KindParseValue, "reading bitmap entry_size", err)
	}
	data, err := dec.DecodeBytes()
	if err != nil {
		return Bitmap{}, newErr(KindParseValue, "reading bitmap data", err)
	}
	return Bitmap{EntrySize: entrySize, Data: data}, nil
}

func writeObject(enc *msgpack.Encoder, o Object) error {
	return enc.EncodeBytes(o.Data)
}

func readObject(dec *msgpack.Decoder) (Object, error) {
	data, err := dec.DecodeBytes()
	if err != nil {
		return Object{}, newErr(KindParseValue, "reading object data", err)
	}
	return Object{Data: data}, nil
}

func writeObjectTree(enc *msgpack.Encoder, t *tree[Object]) error {
	entries := t.Snapshot()
	if uint64(len(entries))*3 > 0xFFFFFFFF {
		return newErr(KindFileFormat, "object tree too large to encode", nil)
	}
	if err := enc.EncodeArrayLen(len(entries) * 3); err != nil {
		return err
	}
	for _, e := range entries {
		if err := enc.EncodeUint(e.Key.Min); err != nil {
			return err
		}
		if err := enc.EncodeUint(e.Key.Max); err != nil {
			return err
		}
		if err := writeObject(enc, e.Value); err != nil {
			return err
		}
	}
	return nil
}

func readObjectTree(dec *msgpack.Decoder) (*tree[Object], error) {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return nil, newErr(KindFileFormat, "reading object tree array header", err)
	}
	if n%3 != 0 {
		return nil, newErr(KindFileFormat, "object tree array length not a multiple of 3", nil)
	}
	t := newTree[Object]()
	for i := 0; i < n/3; i++ {
		min, err := dec.DecodeUint64()
		if err != nil {
			return nil, newErr(KindParseValue, "reading object tree min", err)
		}
		max, err := dec.DecodeUint64()
		if err != nil {
			return nil, newErr(KindParseValue, "reading object tree max", err)
		}
		obj, err := readObject(dec)
		if err != nil {
			return nil, err
		}
		t.Insert(NewRng(min, max), obj)
	}
	return t, nil
}

func writeBitmapTree(enc *msgpack.Encoder, t *tree[Bitmap]) error {
	entries := t.Snapshot()
	if uint64(len(entries))*3 > 0xFFFFFFFF {
		return newErr(KindFileFormat, "bitmap tree too large to encode", nil)
	}
	if err := enc.EncodeArrayLen(len(entries) * 3); err != nil {
		return err
	}
	for _, e := range entries {
		if err := enc.EncodeUint(e.Key.Min); err != nil {
			return err
		}
		if err := enc.EncodeUint(e.Key.Max); err != nil {
			return err
		}
		if err := writeBitmap(enc, e.Value); err != nil {
			return err
		}
	}
	return nil
}

func readBitmapTree(dec *msgpack.Decoder) (*tree[Bitmap], error) {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return nil, newErr(KindFileFormat, "reading bitmap tree array header", err)
	}
	if n%3 != 0 {
		return nil, newErr(KindFileFormat, "bitmap tree array length not a multiple of 3", nil)
	}
	t := newTree[Bitmap]()
	for i := 0; i < n/3; i++ {
		min, err := dec.DecodeUint64()
		if err != nil {
			return nil, newErr(KindParseValue, "reading bitmap tree min", err)
		}
		max, err := dec.DecodeUint64()
		if err != nil {
			return nil, newErr(KindParseValue, "reading bitmap tree max", err)
		}
		bmp, err := readBitmap(dec)
		if err != nil {
			return nil, err
		}
		t.Insert(NewRng(min, max), bmp)
	}
	return t, nil
}

// Serialize encodes the whole DB to the wire format described above.
func (db *DB) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)

	if err := enc.EncodeArrayLen(2); err != nil {
		return nil, newErr(KindIO, "writing db header", err)
	}

	names := db.tableNames()
	if err := enc.EncodeMapLen(len(names)); err != nil {
		return nil, newErr(KindIO, "writing object map header", err)
	}
	for _, name := range names {
		if err := enc.EncodeString(name); err != nil {
			return nil, newErr(KindIO, "writing table name", err)
		}
		if err := writeObjectTree(enc, db.tables[name].objects); err != nil {
			return nil, newErr(KindIO, "writing object tree", err)
		}
	}

	if err := enc.EncodeMapLen(len(names)); err != nil {
		return nil, newErr(KindIO, "writing bitmap map header", err)
	}
	for _, name := range names {
		if err := enc.EncodeString(name); err != nil {
			return nil, newErr(KindIO, "writing table name", err)
		}
		if err := writeBitmapTree(enc, db.tables[name].bitmaps); err != nil {
			return nil, newErr(KindIO, "writing bitmap tree", err)
		}
	}

	return buf.Bytes(), nil
}

// Deserialize decodes a DB previously produced by Serialize. The returned
// DB's occupancy bitmaps are rebuilt from the decoded bitmap trees; it
// carries no Metrics (attach one with db.Metrics = ... if desired).
func Deserialize(data []byte) (*DB, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))

	n, err := dec.DecodeArrayLen()
	if err != nil {
		return nil, newErr(KindFileFormat, "reading db header", err)
	}
	if n != 2 {
		return nil, newErr(KindFileFormat, "db should have length 2", nil)
	}

	objTrees, objNames, err := readNamedObjectTrees(dec)
	if err != nil {
		return nil, err
	}
	bmpTrees, bmpNames, err := readNamedBitmapTrees(dec)
	if err != nil {
		return nil, err
	}

	db := New()
	for i, name := range objNames {
		db.ensureTable(name).objects = objTrees[i]
	}
	for i, name := range bmpNames {
		t := db.ensureTable(name)
		t.bitmaps = bmpTrees[i]
		for _, e := range t.bitmaps.Snapshot() {
			t.occupancy.add(e.Value.EntrySize, e.Key)
		}
	}
	return db, nil
}

func readNamedObjectTrees(dec *msgpack.Decoder) ([]*tree[Object], []string, error) {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return nil, nil, newErr(KindFileFormat, "reading object map header", err)
	}
	trees := make([]*tree[Object], 0, n)
	names := make([]string, 0, n)
	for i := 0; i < n; i++ {
		name, err := decodeTableName(dec)
		if err != nil {
			return nil, nil, err
		}
		t, err := readObjectTree(dec)
		if err != nil {
			return nil, nil, err
		}
		names = append(names, name)
		trees = append(trees, t)
	}
	return trees, names, nil
}

func readNamedBitmapTrees(dec *msgpack.Decoder) ([]*tree[Bitmap], []string, error) {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return nil, nil, newErr(KindFileFormat, "reading bitmap map header", err)
	}
	trees := make([]*tree[Bitmap], 0, n)
	names := make([]string, 0, n)
	for i := 0; i < n; i++ {
		name, err := decodeTableName(dec)
		if err != nil {
			return nil, nil, err
		}
		t, err := readBitmapTree(dec)
		if err != nil {
			return nil, nil, err
		}
		names = append(names, name)
		trees = append(trees, t)
	}
	return trees, names, nil
}

func decodeTableName(dec *msgpack.Decoder) (string, error) {
	name, err := dec.DecodeString()
	if err != nil {
		return "", newErr(KindParseString, "reading table name", err)
	}
	if !utf8.ValidString(name) {
		return "", newErr(KindUTF8, "table name is not valid utf-8", nil)
	}
	return name, nil
}
