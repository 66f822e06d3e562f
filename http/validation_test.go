package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyflight/keyflight/payments"
)

func TestNewSchema_InvalidDocument(t *testing.T) {
	_, err := NewSchema([]byte(`{"type": 12}`))
	assert.Error(t, err)
}

func TestSchema_Validate(t *testing.T) {
	schema, err := NewSchema([]byte(payments.RequestSchema))
	require.NoError(t, err)

	tests := []struct {
		name string
		body string
		ok   bool
	}{
		{"valid", `{"amount":100,"currency":"USD","recipient":"r","reference":"inv-1"}`, true},
		{"valid without reference", `{"amount":0.5,"currency":"EUR","recipient":"r"}`, true},
		{"missing amount", `{"currency":"USD","recipient":"r"}`, false},
		{"zero amount", `{"amount":0,"currency":"USD","recipient":"r"}`, false},
		{"negative amount", `{"amount":-1,"currency":"USD","recipient":"r"}`, false},
		{"bad currency", `{"amount":1,"currency":"US","recipient":"r"}`, false},
		{"empty recipient", `{"amount":1,"currency":"USD","recipient":""}`, false},
		{"unknown field", `{"amount":1,"currency":"USD","recipient":"r","extra":true}`, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := schema.Validate([]byte(tc.body))
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
