package content

import (
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

// authMethod picks token auth for the known forges, then an SSH key. A nil
// method means anonymous access.
func authMethod(repoURL, token, sshKeyPath string) (transport.AuthMethod, error) {
	if token != "" {
		switch {
		case strings.Contains(repoURL, "bitbucket.org"):
			return &http.BasicAuth{Username: "x-token-auth", Password: token}, nil
		case strings.Contains(repoURL, "github.com"), strings.Contains(repoURL, "gitlab.com"):
			return &http.BasicAuth{Username: "oauth2", Password: token}, nil
		default:
			return &http.TokenAuth{Token: token}, nil
		}
	}
	if sshKeyPath != "" {
		publicKeys, err := ssh.NewPublicKeysFromFile("git", sshKeyPath, "")
		if err != nil {
			return nil, fmt.Errorf("couldn't load SSH key: %v", err)
		}
		return publicKeys, nil
	}
	return nil, nil
}
