// Package repair fixes the quoting artifacts of a broken CSV export at the
// text level, before the CSV parser sees the file.
package repair

import (
	"regexp"
	"strings"
)

// quotedDecimal matches a decimal written with a comma inside doubled quotes,
// e.g. ""12,5"".
var quotedDecimal = regexp.MustCompile(`""(\d+),(\d+)""`)

// Line repairs one CSV line. Surrounding spaces are always removed. Only a
// line wrapped end to end in double quotes that also carries doubled quotes
// inside is treated as broken: it is unwrapped, quoted comma decimals become
// dot decimals unless the line carries list brackets, and the doubled quotes
// are dropped. A line that would keep a stray quote after that is an ordinary
// quoted CSV record and is returned as is. The boolean reports whether the
// line was rewritten.
func Line(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if len(line) < 2 || !strings.HasPrefix(line, `"`) || !strings.HasSuffix(line, `"`) {
		return line, false
	}

	content := line[1 : len(line)-1]
	if !strings.Contains(content, `""`) {
		return line, false
	}

	if !strings.ContainsAny(content, "[]") {
		content = quotedDecimal.ReplaceAllString(content, "$1.$2")
	}
	content = strings.ReplaceAll(content, `""`, "")
	if strings.Contains(content, `"`) {
		return line, false
	}

	return content, true
}

// Repair applies Line to every line of input. Line structure is preserved:
// the output has as many lines as the input. changed is the number of lines
// whose content was rewritten.
func Repair(input string) (output string, changed int) {
	input = strings.ReplaceAll(input, "\r\n", "\n")
	trailing := strings.HasSuffix(input, "\n")
	lines := strings.Split(strings.TrimSuffix(input, "\n"), "\n")

	for i, l := range lines {
		fixed, ok := Line(l)
		if ok {
			changed++
		}
		lines[i] = fixed
	}

	output = strings.Join(lines, "\n")
	if trailing {
		output += "\n"
	}
	return output, changed
}
