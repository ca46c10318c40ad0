package decoder

import (
	"strconv"
	"strings"

	"github.com/danielpatrickdp/argument-decoder/internal/frame"
)

// FormatLine renders one decision line:
//
//	<rank> <filled+1> <frame> <target tokens> <target words> <sentence> [<role> <span>]* [<score>]
//
// tab separated, unfilled roles omitted.
func FormatLine(rank int, inst *frame.Instance, a frame.Assignment, confidence bool) string {
	filled := a.Filled()
	fields := []string{
		strconv.Itoa(rank),
		strconv.Itoa(len(filled) + 1),
		inst.Frame,
		inst.Target.Tokens,
		inst.Target.Words,
		strconv.Itoa(inst.Target.Sentence),
	}
	for _, c := range filled {
		fields = append(fields, c.Role, c.Span.Spec())
	}
	if confidence {
		fields = append(fields, strconv.FormatFloat(a.AverageScore(), 'f', -1, 64))
	}
	return strings.Join(fields, "\t")
}
