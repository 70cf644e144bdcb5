package providers

import (
	"viewguard/internal/structures"
	"viewguard/internal/token"
)

// NewCodecProvider builds the token codec. A missing VIEW_SALT stops start-up here.
func NewCodecProvider(conf *structures.Config) (*token.Codec, error) {
	return token.NewCodec(conf.Views.Salt)
}
