package workflow

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/openclaw/walletbridge/internal/chain"
	"github.com/openclaw/walletbridge/internal/wallet"
)

// readLine returns the next trimmed input line.
func (s *Session) readLine(prompt string) (string, error) {
	fmt.Fprint(s.out, prompt)
	line, err := s.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// pickWallet walks the user through selecting or creating the session wallet.
func (s *Session) pickWallet() (wallet.Wallet, error) {
	wallets, err := s.store.Load()
	if err != nil {
		return wallet.Wallet{}, err
	}

	fmt.Fprintln(s.out, "\nWallets:")
	for i, w := range wallets {
		fmt.Fprintf(s.out, "  %d) %s  %s\n", i+1, w.Name, w.Address)
	}
	fmt.Fprintln(s.out, "  n) create new")
	fmt.Fprintln(s.out, "  i) import private key")
	fmt.Fprintln(s.out, "  e) ephemeral (not saved)")

	for {
		choice, err := s.readLine("wallet> ")
		if err != nil {
			return wallet.Wallet{}, err
		}
		switch choice {
		case "n":
			name, err := s.readLine("name> ")
			if err != nil {
				return wallet.Wallet{}, err
			}
			return s.store.Create(name)
		case "i":
			name, err := s.readLine("name> ")
			if err != nil {
				return wallet.Wallet{}, err
			}
			key, err := s.readLine("private key> ")
			if err != nil {
				return wallet.Wallet{}, err
			}
			w, err := s.store.Import(name, key)
			if err != nil {
				fmt.Fprintf(s.out, "import failed: %v\n", err)
				continue
			}
			return w, nil
		case "e":
			return s.store.CreateEphemeral()
		default:
			idx, err := strconv.Atoi(choice)
			if err == nil && idx >= 1 && idx <= len(wallets) {
				return wallets[idx-1], nil
			}
			fmt.Fprintln(s.out, "pick a number, n, i, or e")
		}
	}
}

// pickChain selects a built-in network or builds a custom one.
func (s *Session) pickChain() (chain.Chain, error) {
	builtins := chain.Builtins()
	fmt.Fprintln(s.out, "\nChains:")
	for i, c := range builtins {
		fmt.Fprintf(s.out, "  %d) %s (%d)\n", i+1, c.Name, c.ID)
	}
	fmt.Fprintln(s.out, "  c) custom")

	for {
		choice, err := s.readLine("chain> ")
		if err != nil {
			return chain.Chain{}, err
		}
		if choice == "c" {
			idStr, err := s.readLine("chain id> ")
			if err != nil {
				return chain.Chain{}, err
			}
			id, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				fmt.Fprintln(s.out, "chain id must be a number")
				continue
			}
			name, err := s.readLine("name> ")
			if err != nil {
				return chain.Chain{}, err
			}
			rpcURL, err := s.readLine("rpc url> ")
			if err != nil {
				return chain.Chain{}, err
			}
			c, err := chain.Custom(id, name, rpcURL)
			if err != nil {
				fmt.Fprintf(s.out, "%v\n", err)
				continue
			}
			return c, nil
		}
		idx, err := strconv.Atoi(choice)
		if err == nil && idx >= 1 && idx <= len(builtins) {
			return builtins[idx-1], nil
		}
		fmt.Fprintln(s.out, "pick a number or c")
	}
}

// pickURL asks for the target application URL.
func (s *Session) pickURL() (string, error) {
	for {
		raw, err := s.readLine("\ntarget url> ")
		if err != nil {
			return "", err
		}
		if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
			return raw, nil
		}
		if raw != "" && !strings.Contains(raw, "://") {
			return "https://" + raw, nil
		}
		fmt.Fprintln(s.out, "enter an http(s) URL")
	}
}
