package parser

import (
	"strings"

	"github.com/okian/scoreimport/internal/adapters/formats/batchmanual"
	"github.com/okian/scoreimport/internal/adapters/formats/eamcsv"
	"github.com/okian/scoreimport/internal/adapters/formats/mer"
)

// ImportType names one supported source format.
type ImportType string

// File import types.
const (
	FileMerIIDX           ImportType = mer.Format
	FileBatchManual       ImportType = batchmanual.Format
	FileEamusementIIDXCSV ImportType = eamcsv.Format
)

// Partner import types for the default partner set.
const (
	APIFloIIDX ImportType = "api/flo-iidx"
	APIFloSDVX ImportType = "api/flo-sdvx"
	APIEagIIDX ImportType = "api/eag-iidx"
	APIEagSDVX ImportType = "api/eag-sdvx"
	APIMinSDVX ImportType = "api/min-sdvx"
)

// IsAPI reports whether t pulls from a partner rather than an uploaded file.
func (t ImportType) IsAPI() bool { return strings.HasPrefix(string(t), "api/") }
