package deck

import "embed"

//go:embed decks/*.json
var builtinFS embed.FS
