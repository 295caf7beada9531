package auth

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"

	pkgerrors "github.com/glorpus-work/aipfetch/pkg/errors"
)

type credentialsFile struct {
	Username *string `json:"username"`
	APIKey   *string `json:"api_key"`
}

// LoadCredentials reads {"username": ..., "api_key": ...} from path.
// Errors wrap ErrCredentialsNotFound, ErrCredentialsParse or ErrCredentialsInvalid;
// deciding whether they are fatal is left to the caller.
func LoadCredentials(path string) (*APIKeyAuth, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, pkgerrors.Wrapf(pkgerrors.ErrCredentialsNotFound, "%s", path)
		}
		return nil, pkgerrors.Wrapf(err, "failed to open credentials file %s", path)
	}
	defer func() { _ = file.Close() }()

	creds, err := LoadCredentialsFromReader(file)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "%s", path)
	}
	return creds, nil
}

// LoadCredentialsFromReader decodes credentials from r.
func LoadCredentialsFromReader(r io.Reader) (*APIKeyAuth, error) {
	var raw credentialsFile
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrCredentialsParse, err.Error())
	}
	if raw.Username == nil || raw.APIKey == nil || *raw.Username == "" || *raw.APIKey == "" {
		return nil, pkgerrors.ErrCredentialsInvalid
	}
	return &APIKeyAuth{
		Scheme:   DefaultScheme,
		Username: *raw.Username,
		APIKey:   *raw.APIKey,
	}, nil
}
