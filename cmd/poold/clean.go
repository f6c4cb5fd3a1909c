// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-tty"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"
)

func cleanAction(ctx *cli.Context) error {
	gene, err := loadGenesis(ctx)
	if err != nil {
		return err
	}
	dir, err := instanceDir(ctx, gene)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			fmt.Println("nothing to clean in", dir)
			return nil
		}
		return err
	}

	size, err := sizeOfDir(dir)
	if err != nil {
		return errors.Wrap(err, "measure instance dir")
	}

	if !ctx.Bool(forceFlag.Name) {
		ok, err := confirm(fmt.Sprintf("remove %s (%d MB)? [y/N] ", dir, size>>20))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("aborted")
			return nil
		}
	}
	if err := os.RemoveAll(dir); err != nil {
		return errors.Wrap(err, "remove instance dir")
	}
	fmt.Println("removed", dir)
	return nil
}

// confirm asks on the controlling terminal, so piped stdin can't answer it.
func confirm(prompt string) (bool, error) {
	t, err := tty.Open()
	if err != nil {
		return false, errors.Wrap(err, "open tty, use --force to skip confirmation")
	}
	defer t.Close()

	fmt.Fprint(t.Output(), prompt)
	answer, err := t.ReadString()
	if err != nil {
		return false, err
	}
	return isYes(answer), nil
}

func isYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
