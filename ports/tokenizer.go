package ports

import "github.com/layer-3/questhub/core"

// Tokenizer converts between identities and bearer tokens
type Tokenizer interface {
	IdentityToToken(identity *core.Identity) (string, error)
	TokenToIdentityID(token string) (string, error)
}
