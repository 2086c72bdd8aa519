package chain

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/grainlyyy/pds-api/internal/domain"
	"github.com/pkg/errors"
)

// LoginSignatureMaxAge bounds how old a signed wallet login message may be.
const LoginSignatureMaxAge = 5 * time.Minute

// LoginMessage is the text a wallet signs (personal_sign) to log in.
func LoginMessage(address string, issuedAt int64) string {
	return fmt.Sprintf("Grainlyyy login %s %d", strings.ToLower(address), issuedAt)
}

// VerifyLogin checks an EIP-191 signature of LoginMessage(address, issuedAt)
// and that issuedAt lies within LoginSignatureMaxAge of now.
func VerifyLogin(address string, issuedAt int64, signature string, now time.Time) error {
	signedAt := time.Unix(issuedAt, 0)
	if now.Sub(signedAt) > LoginSignatureMaxAge || signedAt.Sub(now) > time.Minute {
		return errors.Wrap(domain.ErrUnauthorized, "login signature expired")
	}
	signer, err := RecoverSigner(LoginMessage(address, issuedAt), signature)
	if err != nil {
		return err
	}
	if !strings.EqualFold(signer, address) {
		return errors.Wrap(domain.ErrUnauthorized, "signature does not match address")
	}
	return nil
}

// RecoverSigner returns the lower-case address that produced an EIP-191
// signature over message.
func RecoverSigner(message, signature string) (string, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil || len(sig) != crypto.SignatureLength {
		return "", errors.Wrap(domain.ErrUnauthorized, "malformed signature")
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return "", errors.Wrap(domain.ErrUnauthorized, "unrecoverable signature")
	}
	return strings.ToLower(crypto.PubkeyToAddress(*pub).Hex()), nil
}
