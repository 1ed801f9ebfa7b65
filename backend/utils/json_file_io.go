// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ReadJsonFile reads a JSON file and unmarshals it into a value of type T.
// Unknown fields are rejected so that misspelled settings are noticed.
func ReadJsonFile[T any](file string) (T, error) {
	var res T
	f, err := os.Open(file)
	if err != nil {
		return res, err
	}
	defer f.Close()
	decoder := json.NewDecoder(f)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&res); err != nil {
		var zero T
		return zero, fmt.Errorf("failed to parse %s: %w", file, err)
	}
	return res, nil
}

// WriteJsonFile marshals a value of type T into an indented JSON file. The
// file is replaced atomically, a crash leaves either the old or the new
// content behind.
func WriteJsonFile[T any](file string, data T) error {
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(file), filepath.Base(file)+".*.tmp")
	if err != nil {
		return err
	}
	_, err = tmp.Write(append(content, '\n'))
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(tmp.Name(), 0600)
	}
	if err == nil {
		err = os.Rename(tmp.Name(), file)
	}
	if err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
