package image

import (
	"testing"

	"github.com/fangguanya/koala-lang/atom"
)

func TestWriteReadRoundTrip(t *testing.T) {
	img := New("demo")
	img.Table.Insert(atom.KindString, &atom.StringItem{Value: "hello"}, true)
	img.Table.Insert(atom.KindString, &atom.StringItem{Value: "world"}, true)
	img.Table.Insert(atom.KindConst, &atom.ConstItem{Kind: atom.ConstInt, IntVal: 42}, true)
	img.Table.Insert(atom.KindConst, &atom.ConstItem{Kind: atom.ConstBool, BoolVal: true}, true)
	img.Table.Insert(atom.KindCode, &atom.CodeItem{Bytes: []byte{1, 2, 3, 4}}, false)

	data, err := img.Write()
	if err != nil {
		t.Fatalf("unexpected error writing image: %s", err)
	}

	got, err := Read(data)
	if err != nil {
		t.Fatalf("unexpected error reading image: %s", err)
	}

	if got.PkgName != "demo" {
		t.Fatalf("expected PkgName 'demo', got %q", got.PkgName)
	}

	if got.Table.Size(atom.KindString) != 2 {
		t.Fatalf("expected 2 string items, got %d", got.Table.Size(atom.KindString))
	}
	s0 := got.Table.Get(atom.KindString, 0).(*atom.StringItem)
	s1 := got.Table.Get(atom.KindString, 1).(*atom.StringItem)
	if s0.Value != "hello" || s1.Value != "world" {
		t.Fatalf("expected string items 'hello','world', got %q,%q", s0.Value, s1.Value)
	}

	if got.Table.Size(atom.KindConst) != 2 {
		t.Fatalf("expected 2 const items, got %d", got.Table.Size(atom.KindConst))
	}
	c0 := got.Table.Get(atom.KindConst, 0).(*atom.ConstItem)
	if c0.Kind != atom.ConstInt || c0.IntVal != 42 {
		t.Fatalf("expected const[0] to be Int(42), got %+v", c0)
	}
	c1 := got.Table.Get(atom.KindConst, 1).(*atom.ConstItem)
	if c1.Kind != atom.ConstBool || c1.BoolVal != true {
		t.Fatalf("expected const[1] to be Bool(true), got %+v", c1)
	}

	if got.Table.Size(atom.KindCode) != 1 {
		t.Fatalf("expected 1 code item, got %d", got.Table.Size(atom.KindCode))
	}
	code0 := got.Table.Get(atom.KindCode, 0).(*atom.CodeItem)
	if len(code0.Bytes) != 4 || code0.Bytes[0] != 1 || code0.Bytes[3] != 4 {
		t.Fatalf("expected code bytes [1,2,3,4], got %v", code0.Bytes)
	}
}

func TestWriteOmitsEmptyKinds(t *testing.T) {
	img := New("empty")
	data, err := img.Write()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	got, err := Read(data)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if got.Table.Size(atom.KindString) != 0 {
		t.Fatalf("expected no string items in an empty image, got %d", got.Table.Size(atom.KindString))
	}
}

func TestReadRejectsBadMagic(t *testing.T) {
	img := New("demo")
	data, err := img.Write()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	corrupted := append([]byte(nil), data...)
	corrupted[0] = 'X'

	if _, err := Read(corrupted); err == nil {
		t.Fatal("expected an error reading an image with a corrupted magic header")
	}
}

func TestReadRejectsTruncatedHeader(t *testing.T) {
	if _, err := Read([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected an error reading a truncated header")
	}
}

func TestReadRejectsFileSizeMismatch(t *testing.T) {
	img := New("demo")
	data, err := img.Write()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	truncated := data[:len(data)-4]

	if _, err := Read(truncated); err == nil {
		t.Fatal("expected an error reading an image whose declared file size doesn't match its length")
	}
}

func TestPkgNameRoundTripsWithPadding(t *testing.T) {
	// A short package name exercises the pad4 NUL-padding path.
	img := New("a")
	data, err := img.Write()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	got, err := Read(data)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if got.PkgName != "a" {
		t.Fatalf("expected PkgName 'a', got %q", got.PkgName)
	}
}
