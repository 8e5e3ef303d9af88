package code

import "testing"

func TestMake(t *testing.T) {
	tests := []struct {
		op       Opcode
		operands []int
		expected []byte
	}{
		{LOADK, []int{65534}, []byte{byte(LOADK), 0, 0, 255, 254}},
		{LOAD, []int{65534}, []byte{byte(LOAD), 255, 254}},
		{HALT, []int{}, []byte{byte(HALT)}},
		{CALL, []int{1, 2}, []byte{byte(CALL), 0, 0, 0, 1, 0, 2}},
	}

	for _, tt := range tests {
		instruction := Make(tt.op, tt.operands...)

		if len(instruction) != len(tt.expected) {
			t.Fatalf("instruction has wrong length. want=%d, got=%d", len(tt.expected), len(instruction))
		}

		for i, b := range tt.expected {
			if instruction[i] != b {
				t.Errorf("wrong byte at pos %d. want=%d, got=%d", i, b, instruction[i])
			}
		}
	}
}

func TestInstructionsString(t *testing.T) {
	concatted := Instructions{}
	concatted = append(concatted, Make(LOADK, 1)...)
	concatted = append(concatted, Make(CALL, 2, 3)...)
	concatted = append(concatted, Make(HALT)...)

	want := "0000 LOADK 1\n0005 CALL 2 3\n0012 HALT\n"
	if got := concatted.String(); got != want {
		t.Errorf("instructions wrongly formatted.\nwant=%q\ngot=%q", want, got)
	}
}

func TestReadOperands(t *testing.T) {
	tests := []struct {
		op        Opcode
		operands  []int
		bytesRead int
	}{
		{LOADK, []int{65534}, 4},
		{LOAD, []int{65534}, 2},
		{CALL, []int{1, 2}, 6},
		{SUPER, []int{0}, 2},
	}

	for _, tt := range tests {
		instruction := Make(tt.op, tt.operands...)

		def, err := Lookup(byte(tt.op))
		if err != nil {
			t.Fatalf("definition not found: %s", err)
		}

		operandsRead, n := ReadOperands(def, instruction[1:])
		if n != tt.bytesRead {
			t.Fatalf("n wrong. want=%d, got=%d", tt.bytesRead, n)
		}

		for i, want := range tt.operands {
			if operandsRead[i] != want {
				t.Errorf("operand wrong. want=%d, got=%d", want, operandsRead[i])
			}
		}
	}
}

func TestLookupUnknownOpcode(t *testing.T) {
	if _, err := Lookup(255); err == nil {
		t.Fatal("expected an error for an undefined opcode")
	}
}

func TestMakeUnknownOpcode(t *testing.T) {
	out := Make(Opcode(255))
	if len(out) != 0 {
		t.Fatalf("expected empty instruction for unknown opcode, got %v", out)
	}
}

func TestReadInt32NegativeJumpOffset(t *testing.T) {
	instruction := Make(JUMP, -10)
	off := ReadInt32(instruction[1:])
	if off != -10 {
		t.Fatalf("expected -10, got %d", off)
	}
}
