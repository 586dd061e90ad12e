package repair

import (
	"strings"
	"testing"
)

func TestLine_QuotedDecimal(t *testing.T) {
	out, changed := Line(`"R1,C1,""12,5"",2021-01-01"`)
	if out != "R1,C1,12.5,2021-01-01" {
		t.Errorf("unexpected repair: %q", out)
	}
	if !changed {
		t.Error("expected line to be reported as changed")
	}
}

func TestLine_ListLeftUntouched(t *testing.T) {
	out, _ := Line(`"R1,""[""""A"""", """"B""""]"",""12,5"""`)
	if strings.Contains(out, "12.5") {
		t.Errorf("decimal rewritten on a list line: %q", out)
	}
	if !strings.Contains(out, "[") {
		t.Errorf("list brackets lost: %q", out)
	}
}

func TestLine_DoubledQuotesRemoved(t *testing.T) {
	out, changed := Line(`"R2,""chip"",80%"`)
	if out != "R2,chip,80%" {
		t.Errorf("unexpected repair: %q", out)
	}
	if !changed {
		t.Error("expected change")
	}
}

func TestLine_PlainLineUnchanged(t *testing.T) {
	in := `R3,"Rex, le chien",12.5`
	out, changed := Line("  " + in + "  ")
	if out != in {
		t.Errorf("plain line altered: %q", out)
	}
	if changed {
		t.Error("plain line reported as changed")
	}
}

func TestLine_QuotedRecordWithoutDoubledQuotesUnchanged(t *testing.T) {
	for _, in := range []string{
		`"just text"`,
		`"A1","Rex, le chien","80%"`,
		`"coverRef","petName","coverRate"`,
	} {
		out, changed := Line(in)
		if out != in {
			t.Errorf("quoted record altered: %q -> %q", in, out)
		}
		if changed {
			t.Errorf("%q reported as changed", in)
		}
	}
}

func TestLine_EscapedQuoteInQuotedRecordUnchanged(t *testing.T) {
	in := `"A1","Rex ""le grand""","80%"`
	out, changed := Line(in)
	if out != in || changed {
		t.Errorf("escaped quote in ordinary record rewritten: %q, %v", out, changed)
	}
}

func TestRepair_PreservesLineCount(t *testing.T) {
	input := "coverRef,healthHthc\r\n\"A1,\"\"10,5\"\"\"\nA2,11\n"
	out, changed := Repair(input)

	if strings.Count(out, "\n") != 3 {
		t.Errorf("line count changed: %q", out)
	}
	if changed != 1 {
		t.Errorf("expected 1 changed line, got %d", changed)
	}
	if !strings.Contains(out, "A1,10.5\n") {
		t.Errorf("decimal not repaired: %q", out)
	}
}

func TestRepair_NoTrailingNewline(t *testing.T) {
	out, changed := Repair("a,b\n1,2")
	if out != "a,b\n1,2" || changed != 0 {
		t.Errorf("got %q, %d", out, changed)
	}
}
