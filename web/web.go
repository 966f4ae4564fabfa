// Package web carries the embedded chat page.
package web

import _ "embed"

//go:embed index.html
var Index []byte
