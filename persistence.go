package occumap

import (
	"errors"
	"reflect"

	tiledb "github.com/TileDB-Inc/TileDB-Go"
	stgpsr "github.com/yuin/stagparser"
)

// LeafRecord is the on-disk shape of one occupancy leaf, tagged the way
// tiledb.go's struct-to-schema helper (CreateAttr) expects: "dim" fields
// become TileDB dimensions, "attr" fields become compressed attributes.
type LeafRecord struct {
	X      []int32 `tiledb:"dtype=int32,ftype=dim"`
	Y      []int32 `tiledb:"dtype=int32,ftype=dim"`
	Z      []int32 `tiledb:"dtype=int32,ftype=dim"`
	Height []int8  `tiledb:"dtype=int8,ftype=attr" filters:"zstd(level=16)"`
	Value  []float32 `tiledb:"dtype=float32,ftype=attr" filters:"zstd(level=16)"`
}

// createMapSchema builds the sparse array schema for a LeafRecord table:
// int32 (x,y,z) dimensions over the full occupied domain plus an int8
// height and float32 value attribute.
func createMapSchema(ctx *tiledb.Context, uri string, domainMin, domainMax int32, tileExtent int32) error {
	domain, err := tiledb.NewDomain(ctx)
	if err != nil {
		return errors.Join(ErrCreateSchemaTdb, err)
	}
	defer domain.Free()

	for _, name := range []string{"x", "y", "z"} {
		dim, err := tiledb.NewDimension(ctx, name, tiledb.TILEDB_INT32,
			[]int32{domainMin, domainMax}, tileExtent)
		if err != nil {
			return errors.Join(ErrCreateSchemaTdb, err)
		}
		defer dim.Free()

		filters, err := tiledb.NewFilterList(ctx)
		if err != nil {
			return errors.Join(ErrCreateSchemaTdb, err)
		}
		defer filters.Free()

		zstd, err := ZstdFilter(ctx, 16)
		if err != nil {
			return errors.Join(ErrCreateSchemaTdb, err)
		}
		defer zstd.Free()

		if err := AddFilters(filters, zstd); err != nil {
			return errors.Join(ErrAddFiltersTdb, err)
		}
		if err := dim.SetFilterList(filters); err != nil {
			return errors.Join(ErrCreateSchemaTdb, err)
		}
		if err := domain.AddDimensions(dim); err != nil {
			return errors.Join(ErrCreateSchemaTdb, err)
		}
	}

	schema, err := tiledb.NewArraySchema(ctx, tiledb.TILEDB_SPARSE)
	if err != nil {
		return errors.Join(ErrCreateSchemaTdb, err)
	}
	defer schema.Free()

	if err := schema.SetDomain(domain); err != nil {
		return errors.Join(ErrCreateSchemaTdb, err)
	}
	if err := schema.SetCellOrder(tiledb.TILEDB_HILBERT); err != nil {
		return errors.Join(ErrCreateSchemaTdb, err)
	}
	if err := schema.SetTileOrder(tiledb.TILEDB_ROW_MAJOR); err != nil {
		return errors.Join(ErrCreateSchemaTdb, err)
	}

	if err := leafRecordAttrs(schema, ctx); err != nil {
		return err
	}

	array, err := tiledb.NewArray(ctx, uri)
	if err != nil {
		return errors.Join(ErrCreateMapTdb, err)
	}
	defer array.Free()

	if err := array.Create(schema); err != nil {
		return errors.Join(ErrCreateMapTdb, err)
	}
	return nil
}

// leafRecordAttrs attaches LeafRecord's non-dimension fields to schema as
// TileDB attributes: reflect over the struct, skip ftype=dim fields,
// delegate the rest to CreateAttr.
func leafRecordAttrs(schema *tiledb.ArraySchema, ctx *tiledb.Context) error {
	var rec LeafRecord
	values := reflect.ValueOf(&rec).Elem()
	types := values.Type()

	filtDefs, _ := stgpsr.ParseStruct(&rec, "filters")
	tdbDefs, _ := stgpsr.ParseStruct(&rec, "tiledb")

	for i := 0; i < values.NumField(); i++ {
		name := types.Field(i).Name
		fieldTdbDefs := make(map[string]stgpsr.Definition)
		for _, v := range tdbDefs[name] {
			fieldTdbDefs[v.Name()] = v
		}

		def, ok := fieldTdbDefs["ftype"]
		if !ok {
			return errors.Join(ErrCreateSchemaTdb, errors.New("ftype tag not found"))
		}
		ftype, _ := def.Attribute("ftype")
		if ftype == "dim" {
			continue
		}

		if err := CreateAttr(lowerFirst(name), filtDefs[name], fieldTdbDefs, schema, ctx); err != nil {
			return errors.Join(ErrCreateAttrTdb, err)
		}
	}
	return nil
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}

// SaveOccupancy writes every leaf of m to a sparse TileDB array at uri,
// creating the schema on first use. Each leaf records its position in
// units of its own height (OctreeIndex.Position, not leaf resolution) plus
// that height; LoadOccupancy scales the position back up by 2^height,
// letting it reconstruct the exact sparse tree shape. The map's construction parameters are attached
// as array metadata via WriteArrayMetadata, so a stored map is
// self-describing.
func SaveOccupancy(ctx *tiledb.Context, uri string, m *HashedWaveletOctree) error {
	var xs, ys, zs []int32
	var heights []int8
	var values []float32

	m.ForEachLeaf(func(idx OctreeIndex, value F) {
		xs = append(xs, int32(idx.Position.X))
		ys = append(ys, int32(idx.Position.Y))
		zs = append(zs, int32(idx.Position.Z))
		heights = append(heights, int8(idx.Height))
		values = append(values, float32(value))
	})

	if len(xs) == 0 {
		return nil
	}

	lo32, hi32 := minMaxInt32(xs, ys, zs)
	tileExtent := hi32 - lo32 + 1
	if tileExtent < 1 {
		tileExtent = 1
	}

	if err := createMapSchema(ctx, uri, lo32, hi32, tileExtent); err != nil {
		return err
	}

	if err := writeLeaves(ctx, uri, xs, ys, zs, heights, values); err != nil {
		return err
	}

	meta := map[string]any{
		"tree_height":    m.GetTreeHeight(),
		"min_cell_width": m.GetMinCellWidth(),
		"min_log_odds":   m.minLogOdds,
		"max_log_odds":   m.maxLogOdds,
	}
	return WriteArrayMetadata(ctx, uri, "occumap-params", meta)
}

// writeLeaves submits a single unordered sparse write of the five leaf
// buffers, opening and closing the array within its own scope so the
// handle is free again before SaveOccupancy attaches metadata.
func writeLeaves(ctx *tiledb.Context, uri string, xs, ys, zs []int32, heights []int8, values []float32) error {
	array, err := ArrayOpen(ctx, uri, tiledb.TILEDB_WRITE)
	if err != nil {
		return errors.Join(ErrWriteMapTdb, err)
	}
	defer array.Free()
	defer array.Close()

	query, err := tiledb.NewQuery(ctx, array)
	if err != nil {
		return errors.Join(ErrWriteMapTdb, err)
	}
	defer query.Free()

	if err := query.SetLayout(tiledb.TILEDB_UNORDERED); err != nil {
		return errors.Join(ErrWriteMapTdb, err)
	}

	if _, err := query.SetDataBuffer("x", xs); err != nil {
		return errors.Join(ErrWriteMapTdb, err)
	}
	if _, err := query.SetDataBuffer("y", ys); err != nil {
		return errors.Join(ErrWriteMapTdb, err)
	}
	if _, err := query.SetDataBuffer("z", zs); err != nil {
		return errors.Join(ErrWriteMapTdb, err)
	}
	if _, err := query.SetDataBuffer("height", heights); err != nil {
		return errors.Join(ErrWriteMapTdb, err)
	}
	if _, err := query.SetDataBuffer("value", values); err != nil {
		return errors.Join(ErrWriteMapTdb, err)
	}

	if err := query.Submit(); err != nil {
		return errors.Join(ErrWriteMapTdb, err)
	}
	return nil
}

// LoadOccupancy reads every leaf record back from uri and reconstructs a
// HashedWaveletOctree by re-inserting each leaf at its recorded height via
// descendPath, restoring the sparse tree shape exactly.
func LoadOccupancy(ctx *tiledb.Context, uri string, treeHeight int, minCellWidth, minLogOdds, maxLogOdds F) (*HashedWaveletOctree, error) {
	array, err := ArrayOpen(ctx, uri, tiledb.TILEDB_READ)
	if err != nil {
		return nil, errors.Join(ErrReadMapTdb, err)
	}
	defer array.Free()
	defer array.Close()

	nonEmpty, _, err := array.NonEmptyDomain()
	if err != nil {
		return nil, errors.Join(ErrReadMapTdb, err)
	}

	query, err := tiledb.NewQuery(ctx, array)
	if err != nil {
		return nil, errors.Join(ErrReadMapTdb, err)
	}
	defer query.Free()

	if err := query.SetSubarray(nonEmpty); err != nil {
		return nil, errors.Join(ErrReadMapTdb, err)
	}
	if err := query.SetLayout(tiledb.TILEDB_UNORDERED); err != nil {
		return nil, errors.Join(ErrReadMapTdb, err)
	}

	estSize, err := query.EstResultSize(ctx, "value")
	if err != nil {
		return nil, errors.Join(ErrReadMapTdb, err)
	}
	n := int(estSize) / 4
	if n < 1 {
		n = 1
	}

	xs := make([]int32, n)
	ys := make([]int32, n)
	zs := make([]int32, n)
	heights := make([]int8, n)
	values := make([]float32, n)

	if _, err := query.SetDataBuffer("x", xs); err != nil {
		return nil, errors.Join(ErrReadMapTdb, err)
	}
	if _, err := query.SetDataBuffer("y", ys); err != nil {
		return nil, errors.Join(ErrReadMapTdb, err)
	}
	if _, err := query.SetDataBuffer("z", zs); err != nil {
		return nil, errors.Join(ErrReadMapTdb, err)
	}
	if _, err := query.SetDataBuffer("height", heights); err != nil {
		return nil, errors.Join(ErrReadMapTdb, err)
	}
	if _, err := query.SetDataBuffer("value", values); err != nil {
		return nil, errors.Join(ErrReadMapTdb, err)
	}

	if err := query.Submit(); err != nil {
		return nil, errors.Join(ErrReadMapTdb, err)
	}

	m := NewHashedWaveletOctree(treeHeight, minCellWidth, minLogOdds, maxLogOdds)
	for i := 0; i < n; i++ {
		height := int(heights[i])
		posAtHeight := Index3{I(xs[i]), I(ys[i]), I(zs[i])}
		shift := uint(height)
		leafMinCorner := Index3{posAtHeight.X << shift, posAtHeight.Y << shift, posAtHeight.Z << shift}

		node := IndexAndHeightToNodeIndex(leafMinCorner, treeHeight)
		block := m.GetOrAllocateBlock(node.Position)
		blockOrigin := m.blockOriginLeaf(node.Position)
		blockRelLeaf := SubIndex3(leafMinCorner, blockOrigin)
		blockRelAtHeight := Index3{blockRelLeaf.X >> shift, blockRelLeaf.Y >> shift, blockRelLeaf.Z >> shift}

		block.setReconstructedValue(height, blockRelAtHeight, F(values[i]))
	}
	return m, nil
}

func minMaxInt32(xs, ys, zs []int32) (lo, hi int32) {
	lo, hi = xs[0], xs[0]
	for _, s := range [][]int32{xs, ys, zs} {
		for _, v := range s {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	return
}
