/*
Copyright © 2021 GUILLAUME FOURNIER

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package run

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/Gui774ume/ktrace/pkg/kernel"
)

// CLIOptions are the command line options of ktrace
type CLIOptions struct {
	LogLevel      logrus.Level
	KernelOptions kernel.Options
	JSONDump      bool
	Stats         bool
	Script        string
	Init          string
}

var _ pflag.Value = &LogLevelSanitizer{}

// LogLevelSanitizer is a log level sanitizer that ensures that the provided log level exists
type LogLevelSanitizer struct {
	logLevel *logrus.Level
}

// NewLogLevelSanitizer creates a new instance of LogLevelSanitizer. The sanitized level will be written in the provided
// logrus level
func NewLogLevelSanitizer(sanitizedLevel *logrus.Level) *LogLevelSanitizer {
	*sanitizedLevel = logrus.InfoLevel
	return &LogLevelSanitizer{
		logLevel: sanitizedLevel,
	}
}

func (lls *LogLevelSanitizer) String() string {
	return fmt.Sprintf("%v", *lls.logLevel)
}

// Set parses and validates the provided log level
func (lls *LogLevelSanitizer) Set(input string) error {
	level, err := logrus.ParseLevel(input)
	if err != nil {
		return err
	}
	*lls.logLevel = level
	return nil
}

// Type returns the type of the flag
func (lls *LogLevelSanitizer) Type() string {
	return "string"
}
