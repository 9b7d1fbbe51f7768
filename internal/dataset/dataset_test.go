package dataset

import (
	"encoding/json"
	"reflect"
	"testing"
)

func apiRows() *Dataset {
	d := New("API", "Description")
	d.AppendValues(TextValue("A1"), TextValue("d1"))
	d.AppendValues(TextValue("A1"), TextValue("d1"))
	d.AppendValues(TextValue("A2"), NullValue())
	return d
}

func TestValueOf(t *testing.T) {
	testCases := []struct {
		name     string
		in       interface{}
		wantKind Kind
		wantStr  string
	}{
		{"nil", nil, Null, ""},
		{"string", "abc", Text, "abc"},
		{"float", 1.5, Number, "1.5"},
		{"whole float", float64(3), Number, "3"},
		{"int", 42, Number, "42"},
		{"uint8", uint8(7), Number, "7"},
		{"bool", true, Bool, "true"},
		{"json number", json.Number("12"), Number, "12"},
		{"nested map", map[string]interface{}{"a": 1.0}, Text, `{"a":1}`},
		{"nested slice", []interface{}{"x", 2.0}, Text, `["x",2]`},
		{"nil slice", []interface{}(nil), Null, ""},
		{"nil pointer", (*string)(nil), Null, ""},
		{"value passthrough", TextValue("v"), Text, "v"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v := ValueOf(tc.in)
			if v.Kind() != tc.wantKind {
				t.Errorf("Kind() = %v, want %v", v.Kind(), tc.wantKind)
			}
			if v.String() != tc.wantStr {
				t.Errorf("String() = %q, want %q", v.String(), tc.wantStr)
			}
		})
	}
}

func TestValue_SQLArg(t *testing.T) {
	if got := NullValue().SQLArg(); got != nil {
		t.Errorf("Null SQLArg = %v, want nil", got)
	}
	if got := NumberValue(2).SQLArg(); got != "2" {
		t.Errorf("Number SQLArg = %#v, want \"2\"", got)
	}
	if got := BoolValue(false).SQLArg(); got != "false" {
		t.Errorf("Bool SQLArg = %#v, want \"false\"", got)
	}
}

func TestValue_EqualDistinguishesKinds(t *testing.T) {
	if TextValue("1").Equal(NumberValue(1)) {
		t.Error("Text(1) should not equal Number(1)")
	}
	if !NullValue().Equal(Value{}) {
		t.Error("zero Value should be Null")
	}
}

func TestFromRecords(t *testing.T) {
	d := FromRecords([]map[string]interface{}{
		{"b": "x", "a": 1.0},
		{"a": 2.0, "c": nil},
	})
	if got, want := d.Columns(), []string{"a", "b", "c"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Columns() = %v, want %v", got, want)
	}
	if d.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", d.Len())
	}
	if !d.Row(1).Get("b").IsNull() {
		t.Errorf("row 1 column b should be Null, got %v", d.Row(1).Get("b"))
	}
	want := []map[string]interface{}{
		{"a": 1.0, "b": "x", "c": nil},
		{"a": 2.0, "b": nil, "c": nil},
	}
	if got := d.Records(); !reflect.DeepEqual(got, want) {
		t.Errorf("Records() = %v, want %v", got, want)
	}
}

func TestIsEmpty(t *testing.T) {
	var nilSet *Dataset
	testCases := []struct {
		name string
		d    *Dataset
		want bool
	}{
		{"nil", nilSet, true},
		{"no columns no rows", New(), true},
		{"columns no rows", New("a"), true},
		{"rows without columns", FromRecords([]map[string]interface{}{{}}), true},
		{"one row", FromRecords([]map[string]interface{}{{"a": "x"}}), false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.d.IsEmpty(); got != tc.want {
				t.Errorf("IsEmpty() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDropDuplicates(t *testing.T) {
	d := New("k", "v")
	d.AppendValues(TextValue("a"), NullValue())
	d.AppendValues(TextValue("a"), NullValue())
	d.AppendValues(TextValue("1"), NullValue())
	d.AppendValues(NumberValue(1), NullValue())
	d.AppendValues(TextValue("a"), TextValue("x"))

	got := d.DropDuplicates()
	if got.Len() != 4 {
		t.Fatalf("Len() = %d, want 4 (null==null, text 1 != number 1)", got.Len())
	}
	if d.Len() != 5 {
		t.Errorf("input was modified: Len() = %d, want 5", d.Len())
	}
	if !got.DropDuplicates().Equal(got) {
		t.Error("DropDuplicates is not idempotent")
	}
}

func TestDropDuplicates_CellBoundaries(t *testing.T) {
	testCases := []struct {
		name string
		rows [][]Value
		want int
	}{
		{
			name: "separator byte inside text",
			rows: [][]Value{
				{TextValue("x\x1ftb"), TextValue("y")},
				{TextValue("x"), TextValue("b\x1fty")},
			},
			want: 2,
		},
		{
			name: "text spilling into the next cell",
			rows: [][]Value{
				{TextValue("ab"), TextValue("c")},
				{TextValue("a"), TextValue("bc")},
			},
			want: 2,
		},
		{
			name: "digits that look like a length prefix",
			rows: [][]Value{
				{TextValue("2:tx"), TextValue("")},
				{TextValue(""), TextValue("2:tx")},
			},
			want: 2,
		},
		{
			name: "real duplicates still collapse",
			rows: [][]Value{
				{TextValue("x\x1f"), NullValue()},
				{TextValue("x\x1f"), NullValue()},
			},
			want: 1,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := New("a", "b")
			for _, r := range tc.rows {
				d.AppendValues(r...)
			}
			if got := d.DropDuplicates().Len(); got != tc.want {
				t.Errorf("DropDuplicates().Len() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestValue_WideIntegers(t *testing.T) {
	const big = "9007199254740993" // 2^53 + 1
	v := ValueOf(json.Number(big))
	if v.Kind() != Number {
		t.Fatalf("Kind() = %v, want number", v.Kind())
	}
	if got := v.String(); got != big {
		t.Errorf("String() = %q, want %q", got, big)
	}
	if got := v.SQLArg(); got != big {
		t.Errorf("SQLArg() = %#v, want %q", got, big)
	}
	if got := v.Interface(); got != int64(9007199254740993) {
		t.Errorf("Interface() = %#v, want int64 %s", got, big)
	}
	b, err := json.Marshal(v)
	if err != nil || string(b) != big {
		t.Errorf("MarshalJSON() = %s, %v, want %s", b, err, big)
	}

	neighbour := ValueOf(json.Number("9007199254740992"))
	if v.Equal(neighbour) {
		t.Error("adjacent wide integers should not be equal")
	}
	d := New("id")
	d.AppendValues(v)
	d.AppendValues(neighbour)
	if got := d.DropDuplicates().Len(); got != 2 {
		t.Errorf("DropDuplicates().Len() = %d, want 2", got)
	}

	equal := []struct{ a, b Value }{
		{ValueOf(json.Number("1")), NumberValue(1)},
		{ValueOf(json.Number("1.0")), ValueOf(1)},
		{ValueOf(json.Number("4.5")), NumberValue(4.5)},
		{ValueOf(int64(9007199254740993)), v},
	}
	for _, tc := range equal {
		if !tc.a.Equal(tc.b) {
			t.Errorf("%s should equal %s", tc.a, tc.b)
		}
	}
}

func TestDropMissing(t *testing.T) {
	got := apiRows().DropDuplicates().DropMissing("API", "Description")
	want := New("API", "Description")
	want.AppendValues(TextValue("A1"), TextValue("d1"))
	if !got.Equal(want) {
		t.Errorf("DropMissing() = %v, want %v", got.Records(), want.Records())
	}

	t.Run("unknown column ignored", func(t *testing.T) {
		got := apiRows().DropMissing("Missing")
		if got.Len() != 3 {
			t.Errorf("Len() = %d, want 3", got.Len())
		}
	})
	t.Run("no columns checks all", func(t *testing.T) {
		got := apiRows().DropMissing()
		if got.Len() != 2 {
			t.Errorf("Len() = %d, want 2", got.Len())
		}
	})
}

func TestFillMissing(t *testing.T) {
	in := apiRows()
	got := in.FillMissing(TextValue("N/A"))
	if got.CountMissing() != 0 {
		t.Errorf("CountMissing() = %d, want 0", got.CountMissing())
	}
	if v := got.Row(2).Get("Description"); v.String() != "N/A" {
		t.Errorf("filled value = %q, want N/A", v.String())
	}
	if in.CountMissing() != 1 {
		t.Errorf("input was modified: CountMissing() = %d, want 1", in.CountMissing())
	}
}

func TestAppend_AddsColumns(t *testing.T) {
	d := New("a")
	d.AppendValues(TextValue("1"))
	d.Append(Row{"a": TextValue("2"), "b": TextValue("x")})
	if got, want := d.Columns(), []string{"a", "b"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Columns() = %v, want %v", got, want)
	}
	if !d.Row(0).Get("b").IsNull() {
		t.Errorf("earlier row should read Null for new column")
	}
	if got := d.Values(1); !got[1].Equal(TextValue("x")) {
		t.Errorf("Values(1) = %v", got)
	}
}

func TestEqual(t *testing.T) {
	a := New("x", "y")
	b := New("y", "x")
	if a.Equal(b) {
		t.Error("column order must matter")
	}
	if !New().Equal(nil) {
		t.Error("empty dataset should equal nil")
	}
}
