package ingest

import "fmt"

var errNoExtractableContent = fmt.Errorf("no extractable article content")
