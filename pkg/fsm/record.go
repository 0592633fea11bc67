package fsm

// recordBuffer accumulates field captures between rule firings. Its zero
// value is ready to use.
type recordBuffer struct {
	values map[string][]string
	dirty  bool
}

// insert stores a captured raw value for name: appended for list fields,
// replacing the prior value for scalar fields.
func (b *recordBuffer) insert(name, raw string, isList bool) {
	if b.values == nil {
		b.values = make(map[string][]string)
	}
	if isList {
		b.values[name] = append(b.values[name], raw)
	} else {
		b.values[name] = []string{raw}
	}
	b.dirty = true
}

// clearAll resets every field, including filldown ones.
func (b *recordBuffer) clearAll() {
	b.values = nil
	b.dirty = false
}

// clearNonFilldown resets every field except those declared Filldown,
// which retain their last captured value(s).
func (b *recordBuffer) clearNonFilldown(fields map[string]Field) {
	if b.values == nil {
		b.dirty = false
		return
	}
	kept := make(map[string][]string, len(b.values))
	for name, vals := range b.values {
		if f, ok := fields[name]; ok && f.Filldown {
			kept[name] = vals
		}
	}
	b.values = kept
	b.dirty = false
}

// emit builds a Record from the current buffer contents if the buffer is
// dirty and every required field has a value. On success it resets
// non-filldown fields exactly as clearNonFilldown would. It returns
// ok=false when the buffer is clean (leaving the buffer untouched) or when
// a required field is missing (still resetting non-filldown fields, so a
// dropped in-progress record does not leak a stale value into a later
// emission).
func (b *recordBuffer) emit(fields map[string]Field) (Record, bool) {
	if !b.dirty {
		return nil, false
	}
	for name, f := range fields {
		if !f.Required {
			continue
		}
		if len(b.values[name]) == 0 {
			b.clearNonFilldown(fields)
			return nil, false
		}
	}

	rec := make(Record, len(fields))
	for name, f := range fields {
		vals := b.values[name]
		if f.List {
			if len(vals) == 0 {
				if f.TypeHint == FieldTypeInt {
					rec[name] = []int64{}
				} else {
					rec[name] = []string{}
				}
				continue
			}
			rec[name] = convertList(vals, f.TypeHint)
			continue
		}
		if len(vals) == 0 {
			rec[name] = ""
			continue
		}
		rec[name] = convertScalar(vals[len(vals)-1], f.TypeHint)
	}

	b.clearNonFilldown(fields)
	return rec, true
}

func convertList(vals []string, hint FieldType) any {
	if hint == FieldTypeInt {
		out := make([]int64, 0, len(vals))
		for _, v := range vals {
			n, ok := convertInt(v)
			if !ok {
				// a non-numeric value in an int-hinted list falls back to
				// a string list wholesale, matching the scalar fallback
				// behavior of convertScalar.
				strs := make([]string, len(vals))
				copy(strs, vals)
				return strs
			}
			out = append(out, n)
		}
		return out
	}
	if hint == FieldTypeString {
		strs := make([]string, len(vals))
		copy(strs, vals)
		return strs
	}
	// FieldTypeNone: convert each element with the heuristic; if every
	// element converts to an int, return []int64, else []string.
	ints := make([]int64, 0, len(vals))
	allInt := true
	for _, v := range vals {
		n, ok := convertInt(v)
		if !ok {
			allInt = false
			break
		}
		ints = append(ints, n)
	}
	if allInt {
		return ints
	}
	strs := make([]string, len(vals))
	copy(strs, vals)
	return strs
}
