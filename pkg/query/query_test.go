package query

import (
	"net/url"
	"testing"
)

func TestParseLocationForms(t *testing.T) {
	want := Key{Base1: "Acme", Base2: "Corp", Target1: "Acme", Target2: "Inc"}
	locations := []string{
		"base1=Acme&base2=Corp&target1=Acme&target2=Inc",
		"?base1=Acme&base2=Corp&target1=Acme&target2=Inc",
		"/cluster?base1=Acme&base2=Corp&target1=Acme&target2=Inc",
		"http://localhost:3000/cluster?base1=Acme&base2=Corp&target1=Acme&target2=Inc#graph",
		"  target2=Inc&target1=Acme&base2=Corp&base1=Acme&extra=1  ",
	}
	for _, loc := range locations {
		if got := Parse(loc); got != want {
			t.Errorf("Parse(%q) = %+v, want %+v", loc, got, want)
		}
	}
}

func TestParseMissingFieldsAreEmpty(t *testing.T) {
	got := Parse("?base1=earth&target2=faraday")
	want := Key{Base1: "earth", Target2: "faraday"}
	if got != want {
		t.Fatalf("Parse = %+v, want %+v", got, want)
	}
	if got.IsZero() {
		t.Fatal("partial key should not be zero")
	}
	if !Parse("").IsZero() {
		t.Fatal("empty location should give zero key")
	}
}

func TestParseDecodesEscapes(t *testing.T) {
	got := Parse("base1=new%20york&base2=a%26b&target1=%C3%A9t%C3%A9&target2=x+y")
	want := Key{Base1: "new york", Base2: "a&b", Target1: "été", Target2: "x y"}
	if got != want {
		t.Fatalf("Parse = %+v, want %+v", got, want)
	}
}

func TestValuesRoundTrip(t *testing.T) {
	k := Key{Base1: "sun", Base2: "earth & moon", Target1: "nucleus", Target2: "electron"}
	v, err := url.ParseQuery(k.Encode())
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	if got := FromValues(v); got != k {
		t.Fatalf("round trip = %+v, want %+v", got, k)
	}
	if len(k.Values()) != 4 {
		t.Fatalf("expected exactly four parameters, got %v", k.Values())
	}
}

func TestTitle(t *testing.T) {
	k := Key{Base1: "Acme", Base2: "Corp", Target1: "Acme", Target2: "Inc"}
	if got := k.Title(); got != "Acme .* Corp ~ Acme .* Inc" {
		t.Fatalf("Title() = %q", got)
	}
	if got := (Key{}).Title(); got != " .*  ~  .* " {
		t.Fatalf("empty Title() = %q", got)
	}
}
