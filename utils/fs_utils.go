package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// CreateFile will create a file at the given path and file name combination. If the path is the empty string, the
// file will be created in the current working directory
func CreateFile(path string, fileName string) (*os.File, error) {
	// By default, the path will be the name of the file
	filePath := fileName

	// Check to see if the file needs to be created in another directory or the working directory
	if path != "" {
		// Make the directory, if it does not exist already
		err := MakeDirectory(path)
		if err != nil {
			return nil, err
		}
		// Since the path is non-empty, concatenate the path with the name of the file
		filePath = filepath.Join(path, fileName)
	}

	// Create the file
	file, err := os.Create(filePath)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return file, nil
}

// WriteFile writes data to the file at the given path, creating any missing parent directories and overwriting the
// file if it already exists. The data is written to a temporary file in the same directory first and then renamed, so
// readers never observe a partially written file.
func WriteFile(filePath string, data []byte) error {
	// Ensure the existence of the directory we wish to write to.
	if err := MakeDirectory(filepath.Dir(filePath)); err != nil {
		return err
	}

	// Write to a temporary file next to the target
	tempFile, err := os.CreateTemp(filepath.Dir(filePath), "."+filepath.Base(filePath)+".*")
	if err != nil {
		return errors.WithStack(err)
	}
	tempPath := tempFile.Name()
	if _, err = tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
		return errors.WithStack(err)
	}
	if err = tempFile.Close(); err != nil {
		_ = os.Remove(tempPath)
		return errors.WithStack(err)
	}
	if err = os.Chmod(tempPath, 0644); err != nil {
		_ = os.Remove(tempPath)
		return errors.WithStack(err)
	}

	// Move the file into place, replacing any existing file
	if err = os.Rename(tempPath, filePath); err != nil {
		_ = os.Remove(tempPath)
		return errors.WithStack(err)
	}
	return nil
}

// GetFileNameWithoutExtension obtains a filename without the extension. This does not contain any preceding directory
// paths.
func GetFileNameWithoutExtension(filePath string) string {
	return GetFilePathWithoutExtension(filepath.Base(filePath))
}

// GetFilePathWithoutExtension obtains a file path without the extension. This retains all preceding directory paths.
func GetFilePathWithoutExtension(filePath string) string {
	return filePath[:len(filePath)-len(filepath.Ext(filePath))]
}

// MakeDirectory creates a directory at the given path, including any parent directories which do not exist.
// Returns an error, if one occurred.
func MakeDirectory(dirToMake string) error {
	dirInfo, err := os.Stat(dirToMake)
	if err != nil {
		// Directory does not exist, as expected.
		if os.IsNotExist(err) {
			err = os.MkdirAll(dirToMake, 0755)
			if err != nil {
				return errors.WithStack(err)
			}

			// Successfully made the directory
			return nil
		}
		// Some other sort of error, throw it
		return errors.WithStack(err)
	}

	// dirToMake is a file, throw an error accordingly
	if !dirInfo.IsDir() {
		return fmt.Errorf("there is a file with the same name as %s", dirToMake)
	}

	// Directory already exists, good to go
	return nil
}
