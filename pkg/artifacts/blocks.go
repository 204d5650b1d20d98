package artifacts

import (
	"encoding/json"
	"fmt"
)

// BlockKind discriminates artifact content blocks. Payload shape is
// decided here, at the ingestion boundary, not at render time.
type BlockKind string

const (
	BlockKindNote         BlockKind = "note"
	BlockKindOfferSummary BlockKind = "offer_summary"
	BlockKindChecklist    BlockKind = "checklist"
	BlockKindDocument     BlockKind = "document"
	BlockKindPropertyList BlockKind = "property_list"
)

// Block is a tagged variant: exactly one payload field is set, matching
// Kind. Unknown kinds keep their raw payload so a newer writer never
// crashes an older reader.
type Block struct {
	Kind       BlockKind          `json:"kind"`
	Note       *NoteBlock         `json:"note,omitempty"`
	Offer      *OfferSummaryBlock `json:"offer,omitempty"`
	Checklist  *ChecklistBlock    `json:"checklist,omitempty"`
	Document   *DocumentBlock     `json:"document,omitempty"`
	Properties *PropertyListBlock `json:"properties,omitempty"`
	Raw        json.RawMessage    `json:"raw,omitempty"`
}

// NoteBlock is free-form agent or AI-generated text.
type NoteBlock struct {
	Text string `json:"text"`
}

// OfferSummaryBlock summarizes a drafted offer.
type OfferSummaryBlock struct {
	PropertyAddress string   `json:"property_address"`
	OfferPrice      float64  `json:"offer_price"`
	EarnestMoney    float64  `json:"earnest_money,omitempty"`
	ClosingDate     string   `json:"closing_date,omitempty"`
	Contingencies   []string `json:"contingencies,omitempty"`
}

// ChecklistBlock is a standalone task list embedded in an artifact.
type ChecklistBlock struct {
	Items []ChecklistItem `json:"items"`
}

// ChecklistItem is one entry of a ChecklistBlock.
type ChecklistItem struct {
	Label string `json:"label"`
	Done  bool   `json:"done"`
}

// DocumentBlock references an uploaded or generated document.
type DocumentBlock struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Mime string `json:"mime,omitempty"`
}

// PropertyListBlock is a curated list of property references.
type PropertyListBlock struct {
	Addresses []string `json:"addresses"`
}

// DecodeBlock turns a (kind, payload) pair from the wire into a typed
// block. Unknown kinds are preserved raw rather than rejected.
func DecodeBlock(kind string, payload json.RawMessage) (Block, error) {
	block := Block{Kind: BlockKind(kind)}

	var dest any
	switch block.Kind {
	case BlockKindNote:
		block.Note = &NoteBlock{}
		dest = block.Note
	case BlockKindOfferSummary:
		block.Offer = &OfferSummaryBlock{}
		dest = block.Offer
	case BlockKindChecklist:
		block.Checklist = &ChecklistBlock{}
		dest = block.Checklist
	case BlockKindDocument:
		block.Document = &DocumentBlock{}
		dest = block.Document
	case BlockKindPropertyList:
		block.Properties = &PropertyListBlock{}
		dest = block.Properties
	default:
		block.Raw = append(json.RawMessage(nil), payload...)
		return block, nil
	}

	if err := json.Unmarshal(payload, dest); err != nil {
		return Block{}, fmt.Errorf("failed to decode %s block: %w", kind, err)
	}
	return block, nil
}
