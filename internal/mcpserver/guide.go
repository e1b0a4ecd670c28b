package mcpserver

import (
	"strings"

	"github.com/starford/chalkbook/internal/grade"
)

// GradeGuide describes the grade scale and how climbs should be logged.
var GradeGuide = `# Chalkbook Grade Scale

Climbs are graded on the Fontainebleau boulder scale. Grades below are
listed easiest first; "highest" statistics use this order.

` + "    " + strings.Join(grade.Scale, " ") + `

## Logging rules

1. **name** is required and must contain a non-space character.
2. **difficulty** must be one of the grades above, written exactly as shown
   (upper-case letter, optional trailing "+").
3. **date** is optional. Use ` + "`YYYY-MM-DD`" + ` for a day (local midnight) or a
   full RFC 3339 timestamp. Omit it to log the climb now.
4. **photo_url** is optional: a base64 ` + "`data:image/...`" + ` URI or an http(s)
   URL of a png, jpeg, gif or webp image (max 10 MB).

## Removing

Use ` + "`remove_climb`" + ` with the id returned by ` + "`log_climb`" + ` or listed by
` + "`list_climbs`" + `. Removing an unknown id is not an error.
`
