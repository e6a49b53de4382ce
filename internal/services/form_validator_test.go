package services

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/tbourn/go-contact-book/internal/domain"
)

type recordingReporter struct {
	calls []string
}

func (r *recordingReporter) FieldInvalid(f Field) { r.calls = append(r.calls, "invalid:"+string(f)) }
func (r *recordingReporter) FieldValid(f Field)   { r.calls = append(r.calls, "valid:"+string(f)) }

func TestValidField_Names(t *testing.T) {
	var v ContactFormValidator
	cases := []struct {
		in   string
		want bool
	}{
		{"John", true},
		{"Иван", true},
		{"Ёлкин", true},
		{"ёж", true},
		{strings.Repeat("a", 50), true},
		{strings.Repeat("я", 50), true},
		{"", false},
		{"John3", false},
		{strings.Repeat("a", 51), false},
		{strings.Repeat("я", 51), false},
		{"Anna Maria", false},
		{"O'Neil", false},
		{"Smith-Jones", false},
		{"Jöhn", false},
		{"[x]", false},
	}
	for _, tc := range cases {
		if got := v.ValidField(FieldName, tc.in); got != tc.want {
			t.Errorf("ValidField(name, %q) = %v; want %v", tc.in, got, tc.want)
		}
		if got := v.ValidField(FieldLastName, tc.in); got != tc.want {
			t.Errorf("ValidField(lastName, %q) = %v; want %v", tc.in, got, tc.want)
		}
	}
}

func TestValidField_Phones(t *testing.T) {
	var v ContactFormValidator
	cases := []struct {
		in   string
		want bool
	}{
		{"+7 (912) 345-67-89", true},
		{"+79123456789", true},
		{"89123456789", true},
		{"79123456789", true},
		{"8-912-345-67-89", true},
		{"7 912 345 67 89", true},
		{"9123456789", true},
		{"(912)345-67-89", true},
		{"912 3456789", true},
		{"12345", false},
		{"", false},
		{"912345678", false},
		{" 9123456789", false},
		{"+8 912 345 67 89", false},
		{"+7 (912 345-67-89", false},
		{"+7  912 345 67 89", false},
		{"+7 912.345.67.89", false},
		{"+7 912 345 67 89 ", false},
		{"٩١٢٣٤٥٦٧٨٩", false},
	}
	for _, tc := range cases {
		if got := v.ValidField(FieldPhone, tc.in); got != tc.want {
			t.Errorf("ValidField(phone, %q) = %v; want %v", tc.in, got, tc.want)
		}
	}
}

func TestValidField_UnknownField(t *testing.T) {
	var v ContactFormValidator
	if v.ValidField(Field("email"), "a@b.c") {
		t.Fatalf("unknown field must not validate")
	}
}

func TestCheck_EvaluatesAllFields(t *testing.T) {
	var v ContactFormValidator
	r := &recordingReporter{}

	ok := v.Check(domain.ContactFields{Name: "John3", LastName: "Smith", Phone: "12345"}, r)
	if ok {
		t.Fatalf("expected Check to fail")
	}
	want := []string{"invalid:name", "valid:lastName", "invalid:phone"}
	if !reflect.DeepEqual(r.calls, want) {
		t.Fatalf("reporter calls = %v; want %v", r.calls, want)
	}
}

func TestCheck_AllValid_SignalsValid(t *testing.T) {
	var v ContactFormValidator
	states := FieldStates{FieldName: false, FieldPhone: false}

	if !v.Check(domain.ContactFields{Name: "Ivan", LastName: "Petrov", Phone: "+7 (912) 345-67-89"}, states) {
		t.Fatalf("expected Check to pass")
	}
	for _, f := range FormFields {
		if !states[f] {
			t.Fatalf("expected %s to be cleared, got %v", f, states)
		}
	}
}

func TestCheck_NilReporter(t *testing.T) {
	var v ContactFormValidator
	if v.Check(domain.ContactFields{}, nil) {
		t.Fatalf("empty form must not validate")
	}
}

func TestInvalid_FormOrder(t *testing.T) {
	var v ContactFormValidator

	got := v.Invalid(domain.ContactFields{Name: "John3", LastName: "", Phone: "12345"})
	want := []Field{FieldName, FieldLastName, FieldPhone}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Invalid = %v; want %v", got, want)
	}

	if got := v.Invalid(domain.ContactFields{Name: "John", LastName: "Smith", Phone: "89123456789"}); got != nil {
		t.Fatalf("expected nil for valid input, got %v", got)
	}
}

func TestValidationError_MessageAndIs(t *testing.T) {
	err := error(&ValidationError{Fields: []Field{FieldName, FieldPhone}})
	if got := err.Error(); got != "invalid contact: name, phone" {
		t.Fatalf("Error() = %q", got)
	}
	if !errors.Is(err, ErrInvalidContact) {
		t.Fatalf("expected errors.Is(err, ErrInvalidContact)")
	}
	if errors.Is(err, ErrDuplicateContact) {
		t.Fatalf("validation error must not match ErrDuplicateContact")
	}
}
