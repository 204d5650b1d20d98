package artifacts

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBlockVariants(t *testing.T) {
	tests := []struct {
		kind    string
		payload string
		check   func(t *testing.T, b Block)
	}{
		{
			kind:    "note",
			payload: `{"text":"Buyer prefers north-facing lots"}`,
			check: func(t *testing.T, b Block) {
				require.NotNil(t, b.Note)
				assert.Equal(t, "Buyer prefers north-facing lots", b.Note.Text)
			},
		},
		{
			kind:    "offer_summary",
			payload: `{"property_address":"42 Maple Ct","offer_price":512000,"contingencies":["inspection","financing"]}`,
			check: func(t *testing.T, b Block) {
				require.NotNil(t, b.Offer)
				assert.Equal(t, "42 Maple Ct", b.Offer.PropertyAddress)
				assert.Equal(t, 512000.0, b.Offer.OfferPrice)
				assert.Len(t, b.Offer.Contingencies, 2)
			},
		},
		{
			kind:    "checklist",
			payload: `{"items":[{"label":"Order inspection","done":true},{"label":"Book appraisal","done":false}]}`,
			check: func(t *testing.T, b Block) {
				require.NotNil(t, b.Checklist)
				require.Len(t, b.Checklist.Items, 2)
				assert.True(t, b.Checklist.Items[0].Done)
			},
		},
		{
			kind:    "document",
			payload: `{"name":"disclosure.pdf","url":"https://files.example/disclosure.pdf","mime":"application/pdf"}`,
			check: func(t *testing.T, b Block) {
				require.NotNil(t, b.Document)
				assert.Equal(t, "disclosure.pdf", b.Document.Name)
			},
		},
		{
			kind:    "property_list",
			payload: `{"addresses":["42 Maple Ct","7 Birch Ln"]}`,
			check: func(t *testing.T, b Block) {
				require.NotNil(t, b.Properties)
				assert.Len(t, b.Properties.Addresses, 2)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			block, err := DecodeBlock(tt.kind, json.RawMessage(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, BlockKind(tt.kind), block.Kind)
			tt.check(t, block)
		})
	}
}

func TestDecodeBlockUnknownKindPreservedRaw(t *testing.T) {
	payload := json.RawMessage(`{"future":"shape"}`)
	block, err := DecodeBlock("hologram", payload)
	require.NoError(t, err)
	assert.Equal(t, BlockKind("hologram"), block.Kind)
	assert.JSONEq(t, `{"future":"shape"}`, string(block.Raw))
	assert.Nil(t, block.Note)
}

func TestDecodeBlockMalformedPayload(t *testing.T) {
	_, err := DecodeBlock("note", json.RawMessage(`{"text":`))
	assert.Error(t, err)
}
