package services

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasttemplate"

	"ml-pipeline-nodes/internal/core/domain"
)

const defaultNameTimeLayout = "2006_01_02-T15_04_05"

// DefaultModelNameTemplate is what the pipeline editor pre-fills for new nodes.
const DefaultModelNameTemplate = "{model.name}-{datetime.datetime.now().strftime('%Y_%m_%d-T%H_%M_%S')}"

var strftimeExpr = regexp.MustCompile(`^datetime\.datetime\.now\(\)\.strftime\((['"])(.*)(['"])\)$`)

// NameTemplateData is what template tags can refer to.
type NameTemplateData struct {
	Model   *domain.Model
	Dataset *domain.Dataset
	Now     time.Time
}

// RenderModelName expands every {expression} of tmpl. Unknown expressions are
// logged and render as an empty string.
func RenderModelName(tmpl string, data NameTemplateData) (string, error) {
	if !strings.Contains(tmpl, "{") {
		return tmpl, nil
	}
	out, err := fasttemplate.ExecuteFuncStringWithErr(tmpl, "{", "}", func(w io.Writer, tag string) (int, error) {
		return io.WriteString(w, evalNameExpr(strings.TrimSpace(tag), data))
	})
	if err != nil {
		return "", fmt.Errorf("%w: model name template %q: %v", domain.ErrInvalidNodeConfig, tmpl, err)
	}
	return out, nil
}

func evalNameExpr(expr string, data NameTemplateData) string {
	switch expr {
	case "":
		return ""
	case "model.name":
		if data.Model != nil {
			return data.Model.Name
		}
	case "model.id":
		if data.Model != nil {
			return data.Model.ID
		}
	case "dataset.name":
		if data.Dataset != nil {
			return data.Dataset.Name
		}
	case "dataset.id":
		if data.Dataset != nil {
			return data.Dataset.ID
		}
	case "project.id":
		if data.Dataset != nil {
			return data.Dataset.ProjectID
		}
	case "now":
		return data.Now.Format(defaultNameTimeLayout)
	default:
		if layout, ok := strings.CutPrefix(expr, "now:"); ok {
			return data.Now.Format(layout)
		}
		if m := strftimeExpr.FindStringSubmatch(expr); m != nil && m[1] == m[3] {
			return strftime(data.Now, m[2])
		}
	}
	log.WithField("expression", expr).Error("cannot evaluate model name expression")
	return ""
}

var strftimeDirectives = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "01",
	'd': "02",
	'H': "15",
	'I': "03",
	'M': "04",
	'S': "05",
	'p': "PM",
	'b': "Jan",
	'B': "January",
	'a': "Mon",
	'A': "Monday",
	'j': "002",
	'Z': "MST",
	'z': "-0700",
}

// strftime renders the C-style format directive by directive so literal text
// is never read as a Go layout token.
func strftime(t time.Time, format string) string {
	var b strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i == len(format)-1 {
			b.WriteByte(c)
			continue
		}
		i++
		d := format[i]
		switch {
		case d == '%':
			b.WriteByte('%')
		case d == 'f':
			fmt.Fprintf(&b, "%06d", t.Nanosecond()/1000)
		default:
			if layout, ok := strftimeDirectives[d]; ok {
				b.WriteString(t.Format(layout))
			} else {
				b.WriteByte('%')
				b.WriteByte(d)
			}
		}
	}
	return b.String()
}
