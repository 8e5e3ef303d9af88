package image

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/fangguanya/koala-lang/atom"
)

// writeItem encodes a single atom.Item of the given kind per spec.md §6's
// per-kind layout table.
func writeItem(w *bytes.Buffer, kind atom.Kind, it atom.Item) error {
	le := binary.LittleEndian
	switch kind {
	case atom.KindString:
		s := it.(*atom.StringItem)
		b := append([]byte(s.Value), 0)
		if err := binary.Write(w, le, int32(len(b))); err != nil {
			return err
		}
		w.Write(b)

	case atom.KindType:
		t := it.(*atom.TypeItem)
		if err := binary.Write(w, le, uint8(t.Kind)); err != nil {
			return err
		}
		if err := binary.Write(w, le, uint8(0)); err != nil { // varg, unused by this dialect
			return err
		}
		if err := binary.Write(w, le, uint16(t.Dims)); err != nil {
			return err
		}
		switch t.Kind {
		case atom.TypePrimitive:
			w.WriteByte(t.Prim)
			w.Write(make([]byte, 7))
		case atom.TypeUserDef:
			binary.Write(w, le, int32(t.PathIdx))
			binary.Write(w, le, int32(t.NameIdx))
		case atom.TypeProto:
			binary.Write(w, le, int32(t.ProtoIdx))
			binary.Write(w, le, int32(0))
		case atom.TypeArray:
			binary.Write(w, le, int32(t.Dims))
			binary.Write(w, le, int32(t.ElemIdx))
		case atom.TypePkgPath:
			binary.Write(w, le, int32(t.PathIdx))
			binary.Write(w, le, int32(0))
		}

	case atom.KindTypeList:
		l := it.(*atom.TypeListItem)
		if err := binary.Write(w, le, int32(len(l.Indices))); err != nil {
			return err
		}
		for _, idx := range l.Indices {
			binary.Write(w, le, int32(idx))
		}

	case atom.KindProto:
		p := it.(*atom.ProtoItem)
		binary.Write(w, le, int32(p.ReturnsIdx))
		binary.Write(w, le, int32(p.ParamsIdx))

	case atom.KindConst:
		c := it.(*atom.ConstItem)
		binary.Write(w, le, int32(c.Kind))
		switch c.Kind {
		case atom.ConstInt:
			binary.Write(w, le, c.IntVal)
		case atom.ConstFloat:
			binary.Write(w, le, c.FloatVal)
		case atom.ConstBool:
			v := int32(0)
			if c.BoolVal {
				v = 1
			}
			binary.Write(w, le, v)
			w.Write(make([]byte, 4))
		case atom.ConstString:
			binary.Write(w, le, int32(c.StringIdx))
			w.Write(make([]byte, 4))
		case atom.ConstNil:
			w.Write(make([]byte, 8))
		}

	case atom.KindVar:
		v := it.(*atom.VarItem)
		binary.Write(w, le, int32(v.NameIdx))
		binary.Write(w, le, int32(v.TypeIdx))
		binary.Write(w, le, int32(v.Flags))

	case atom.KindFunc:
		f := it.(*atom.FuncItem)
		binary.Write(w, le, int32(f.NameIdx))
		binary.Write(w, le, int32(f.ProtoIdx))
		binary.Write(w, le, int16(f.Access))
		binary.Write(w, le, int16(f.Locvars))
		binary.Write(w, le, int32(f.CodeIdx))

	case atom.KindCode:
		c := it.(*atom.CodeItem)
		binary.Write(w, le, int32(len(c.Bytes)))
		w.Write(c.Bytes)

	case atom.KindClass:
		c := it.(*atom.ClassItem)
		binary.Write(w, le, int32(c.ClassIdx))
		binary.Write(w, le, int32(c.Access))
		binary.Write(w, le, int32(c.SuperIdx))
		binary.Write(w, le, int32(c.TraitsIdx))

	case atom.KindField:
		f := it.(*atom.FieldItem)
		binary.Write(w, le, int32(f.ClassIdx))
		binary.Write(w, le, int32(f.NameIdx))
		binary.Write(w, le, int32(f.TypeIdx))
		binary.Write(w, le, int32(f.Access))

	case atom.KindMethod:
		m := it.(*atom.MethodItem)
		binary.Write(w, le, int32(m.ClassIdx))
		binary.Write(w, le, int32(m.NameIdx))
		binary.Write(w, le, int32(m.ProtoIdx))
		binary.Write(w, le, int16(m.Access))
		binary.Write(w, le, int16(m.Locvars))
		binary.Write(w, le, int32(m.CodeIdx))

	case atom.KindTrait:
		t := it.(*atom.TraitItem)
		binary.Write(w, le, int32(t.ClassIdx))
		binary.Write(w, le, int32(t.Access))
		binary.Write(w, le, int32(t.TraitsIdx))

	case atom.KindIMethod:
		m := it.(*atom.IMethodItem)
		binary.Write(w, le, int32(m.ClassIdx))
		binary.Write(w, le, int32(m.NameIdx))
		binary.Write(w, le, int32(m.ProtoIdx))
		binary.Write(w, le, int32(m.Access))

	case atom.KindLocalVar:
		l := it.(*atom.LocalVarItem)
		binary.Write(w, le, int32(l.NameIdx))
		binary.Write(w, le, int32(l.TypeIdx))
		binary.Write(w, le, int32(l.Pos))
		binary.Write(w, le, int16(l.Flags))
		binary.Write(w, le, int16(l.OwnerIdx))

	default:
		return fmt.Errorf("image: unknown item kind %v", kind)
	}
	return nil
}

// readItem decodes a single item of the given kind, mirroring writeItem.
func readItem(r io.Reader, kind atom.Kind) (atom.Item, error) {
	le := binary.LittleEndian
	switch kind {
	case atom.KindString:
		var length int32
		if err := binary.Read(r, le, &length); err != nil {
			return nil, err
		}
		b := make([]byte, length)
		if _, err := io.ReadFull(r, b); err != nil {
			return nil, err
		}
		return &atom.StringItem{Value: string(bytes.TrimRight(b, "\x00"))}, nil

	case atom.KindType:
		var kindByte, unused uint8
		var dims uint16
		if err := binary.Read(r, le, &kindByte); err != nil {
			return nil, err
		}
		if err := binary.Read(r, le, &unused); err != nil {
			return nil, err
		}
		if err := binary.Read(r, le, &dims); err != nil {
			return nil, err
		}
		t := &atom.TypeItem{Kind: atom.TypeKind(kindByte), Dims: int(dims)}
		switch t.Kind {
		case atom.TypePrimitive:
			b := make([]byte, 8)
			if _, err := io.ReadFull(r, b); err != nil {
				return nil, err
			}
			t.Prim = b[0]
		case atom.TypeUserDef:
			var path, name int32
			binary.Read(r, le, &path)
			binary.Read(r, le, &name)
			t.PathIdx, t.NameIdx = int(path), int(name)
		case atom.TypeProto:
			var proto, unused2 int32
			binary.Read(r, le, &proto)
			binary.Read(r, le, &unused2)
			t.ProtoIdx = int(proto)
		case atom.TypeArray:
			var dims2, elem int32
			binary.Read(r, le, &dims2)
			binary.Read(r, le, &elem)
			t.ElemIdx = int(elem)
		case atom.TypePkgPath:
			var path, unused2 int32
			binary.Read(r, le, &path)
			binary.Read(r, le, &unused2)
			t.PathIdx = int(path)
		}
		return t, nil

	case atom.KindTypeList:
		var size int32
		if err := binary.Read(r, le, &size); err != nil {
			return nil, err
		}
		idxs := make([]int, size)
		for i := range idxs {
			var v int32
			if err := binary.Read(r, le, &v); err != nil {
				return nil, err
			}
			idxs[i] = int(v)
		}
		return &atom.TypeListItem{Indices: idxs}, nil

	case atom.KindProto:
		var rIdx, pIdx int32
		binary.Read(r, le, &rIdx)
		binary.Read(r, le, &pIdx)
		return &atom.ProtoItem{ReturnsIdx: int(rIdx), ParamsIdx: int(pIdx)}, nil

	case atom.KindConst:
		var kindV int32
		if err := binary.Read(r, le, &kindV); err != nil {
			return nil, err
		}
		c := &atom.ConstItem{Kind: atom.ConstKind(kindV)}
		switch c.Kind {
		case atom.ConstInt:
			binary.Read(r, le, &c.IntVal)
		case atom.ConstFloat:
			binary.Read(r, le, &c.FloatVal)
		case atom.ConstBool:
			var v int32
			binary.Read(r, le, &v)
			c.BoolVal = v != 0
			io.ReadFull(r, make([]byte, 4))
		case atom.ConstString:
			var idx int32
			binary.Read(r, le, &idx)
			c.StringIdx = int(idx)
			io.ReadFull(r, make([]byte, 4))
		case atom.ConstNil:
			io.ReadFull(r, make([]byte, 8))
		}
		return c, nil

	case atom.KindVar:
		var name, typ, flags int32
		binary.Read(r, le, &name)
		binary.Read(r, le, &typ)
		binary.Read(r, le, &flags)
		return &atom.VarItem{NameIdx: int(name), TypeIdx: int(typ), Flags: int(flags)}, nil

	case atom.KindFunc:
		var name, proto int32
		var access, locvars int16
		var code int32
		binary.Read(r, le, &name)
		binary.Read(r, le, &proto)
		binary.Read(r, le, &access)
		binary.Read(r, le, &locvars)
		binary.Read(r, le, &code)
		return &atom.FuncItem{NameIdx: int(name), ProtoIdx: int(proto), Access: int(access), Locvars: int(locvars), CodeIdx: int(code)}, nil

	case atom.KindCode:
		var size int32
		if err := binary.Read(r, le, &size); err != nil {
			return nil, err
		}
		b := make([]byte, size)
		if _, err := io.ReadFull(r, b); err != nil {
			return nil, err
		}
		return &atom.CodeItem{Bytes: b}, nil

	case atom.KindClass:
		var class, access, super, traits int32
		binary.Read(r, le, &class)
		binary.Read(r, le, &access)
		binary.Read(r, le, &super)
		binary.Read(r, le, &traits)
		return &atom.ClassItem{ClassIdx: int(class), Access: int(access), SuperIdx: int(super), TraitsIdx: int(traits)}, nil

	case atom.KindField:
		var class, name, typ, access int32
		binary.Read(r, le, &class)
		binary.Read(r, le, &name)
		binary.Read(r, le, &typ)
		binary.Read(r, le, &access)
		return &atom.FieldItem{ClassIdx: int(class), NameIdx: int(name), TypeIdx: int(typ), Access: int(access)}, nil

	case atom.KindMethod:
		var class, name, proto int32
		var access, locvars int16
		var code int32
		binary.Read(r, le, &class)
		binary.Read(r, le, &name)
		binary.Read(r, le, &proto)
		binary.Read(r, le, &access)
		binary.Read(r, le, &locvars)
		binary.Read(r, le, &code)
		return &atom.MethodItem{ClassIdx: int(class), NameIdx: int(name), ProtoIdx: int(proto), Access: int(access), Locvars: int(locvars), CodeIdx: int(code)}, nil

	case atom.KindTrait:
		var class, access, traits int32
		binary.Read(r, le, &class)
		binary.Read(r, le, &access)
		binary.Read(r, le, &traits)
		return &atom.TraitItem{ClassIdx: int(class), Access: int(access), TraitsIdx: int(traits)}, nil

	case atom.KindIMethod:
		var class, name, proto, access int32
		binary.Read(r, le, &class)
		binary.Read(r, le, &name)
		binary.Read(r, le, &proto)
		binary.Read(r, le, &access)
		return &atom.IMethodItem{ClassIdx: int(class), NameIdx: int(name), ProtoIdx: int(proto), Access: int(access)}, nil

	case atom.KindLocalVar:
		var name, typ, pos int32
		var flags, owner int16
		binary.Read(r, le, &name)
		binary.Read(r, le, &typ)
		binary.Read(r, le, &pos)
		binary.Read(r, le, &flags)
		binary.Read(r, le, &owner)
		return &atom.LocalVarItem{NameIdx: int(name), TypeIdx: int(typ), Pos: int(pos), Flags: int(flags), OwnerIdx: int(owner)}, nil

	default:
		return nil, fmt.Errorf("image: unknown item kind %v", kind)
	}
}
