package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHexKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestNewTokenEncryptor(t *testing.T) {
	tests := []struct {
		name    string
		hexKey  string
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid 32-byte key",
			hexKey:  testHexKey,
			wantErr: false,
		},
		{
			name:    "empty key",
			hexKey:  "",
			wantErr: true,
			errMsg:  "encryption key is required",
		},
		{
			name:    "invalid hex",
			hexKey:  "not-hex-string",
			wantErr: true,
			errMsg:  "invalid encryption key: must be hex-encoded",
		},
		{
			name:    "too short key",
			hexKey:  "0123456789abcdef",
			wantErr: true,
			errMsg:  "must be 32 bytes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := NewTokenEncryptor(tt.hexKey)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.Nil(t, enc)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, enc)
			}
		})
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc, err := NewTokenEncryptor(testHexKey)
	require.NoError(t, err)

	tests := []struct {
		name      string
		plaintext string
	}{
		{
			name:      "access token",
			plaintext: "ya29.access-token-here",
		},
		{
			name:      "refresh token",
			plaintext: "1//0gAbCdEfGhIjKlMnOpQrStUvWxYz-refresh",
		},
		{
			name:      "unicode content",
			plaintext: "tökén with ünïcode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob, err := enc.Encrypt(tt.plaintext)
			require.NoError(t, err)
			assert.NotEqual(t, tt.plaintext, blob)

			decrypted, err := enc.Decrypt(blob)
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, decrypted)
		})
	}
}

func TestEncryptProducesUniqueCiphertexts(t *testing.T) {
	enc, err := NewTokenEncryptor(testHexKey)
	require.NoError(t, err)

	first, err := enc.Encrypt("same token")
	require.NoError(t, err)
	second, err := enc.Encrypt("same token")
	require.NoError(t, err)

	// Random nonces make the blobs differ even for identical plaintext
	assert.NotEqual(t, first, second)
}

func TestEncryptRejectsEmptyPlaintext(t *testing.T) {
	enc, err := NewTokenEncryptor(testHexKey)
	require.NoError(t, err)

	_, err = enc.Encrypt("")
	assert.Error(t, err)
}

func TestDecryptRejectsTamperedBlob(t *testing.T) {
	enc, err := NewTokenEncryptor(testHexKey)
	require.NoError(t, err)

	blob, err := enc.Encrypt("ya29.access-token-here")
	require.NoError(t, err)

	tests := []struct {
		name string
		blob string
	}{
		{"empty", ""},
		{"not base64", "%%%not-base64%%%"},
		{"too short", "AAAA"},
		{"tampered", "x" + blob[1:]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := enc.Decrypt(tt.blob)
			assert.Error(t, err)
		})
	}
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	enc, err := NewTokenEncryptor(testHexKey)
	require.NoError(t, err)

	otherKey, err := GenerateKey()
	require.NoError(t, err)
	other, err := NewTokenEncryptor(otherKey)
	require.NoError(t, err)

	blob, err := enc.Encrypt("ya29.access-token-here")
	require.NoError(t, err)

	_, err = other.Decrypt(blob)
	assert.Error(t, err)
}

func TestGenerateKey(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	assert.Len(t, key, 64)

	_, err = NewTokenEncryptor(key)
	assert.NoError(t, err)
}
