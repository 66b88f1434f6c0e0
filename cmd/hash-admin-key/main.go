// Command hash-admin-key prints the hash of an admin API key for the
// LAUNDRY_ADMIN_KEY_HASHES setting.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/laundry-booking/internal/domain/auth"
)

func main() {
	var (
		apiKey string
		pepper string
	)

	flag.StringVar(&apiKey, "api-key", "", "API key to hash, read from stdin when empty")
	flag.StringVar(&pepper, "pepper", "", "HMAC pepper (or LAUNDRY_ADMIN_PEPPER env)")
	flag.Parse()

	if pepper == "" {
		pepper = os.Getenv("LAUNDRY_ADMIN_PEPPER")
	}
	if pepper == "" {
		slog.Error("pepper is required: set --pepper or LAUNDRY_ADMIN_PEPPER")
		os.Exit(1)
	}
	if apiKey == "" {
		key, err := readKey(os.Stdin)
		if err != nil {
			slog.Error("read api key", slog.String("error", err.Error()))
			os.Exit(1)
		}
		apiKey = key
	}

	fmt.Println(auth.Hash([]byte(pepper), apiKey))
}

func readKey(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && line == "" {
		return "", errors.Wrap(err, "read stdin")
	}
	key := strings.TrimSpace(line)
	if key == "" {
		return "", errors.New("empty api key")
	}
	return key, nil
}
