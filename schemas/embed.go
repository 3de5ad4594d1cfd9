// Package schemas provides embedded CUE resource type definitions.
package schemas

import "embed"

// SchemaFS contains the embedded resource schema CUE files.
// This embeds all .cue files from the aws directory.
//
//go:embed aws/*.cue
var SchemaFS embed.FS

// SchemaDir is the root directory within the embedded filesystem.
const SchemaDir = "aws"
