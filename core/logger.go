// The MIT License (MIT)
//
// Copyright (c) 2013-2016 Oryx(ossrs)
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
// the Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
// FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
// COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
// IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
// CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

package core

import (
	"io/ioutil"
	"log"
	"os"

	ol "github.com/ossrs/go-oryx-lib/logger"
)

// Context alias of the Context interface.
// @remark user can directly use ol Context, or the context.Context wrapped by ol.WithContext.
type Context interface {
	ol.Context
}

const (
	logLabel = "[rtmpx]"
	// LogInfoLabel provides Info labeling for logs
	LogInfoLabel = logLabel + "[info] "
	// LogTraceLabel provides Trace labeling for logs
	LogTraceLabel = logLabel + "[trace] "
	// LogWarnLabel provides Warn labeling for logs
	LogWarnLabel = logLabel + "[warn] "
	// LogErrorLabel provides Error labeling for logs
	LogErrorLabel = logLabel + "[error] "
)

// RewriteLogger rewrites the label and sets an alias for the logger.
// @remark the verbose info level is discard unless verbose is true.
func RewriteLogger(verbose bool) {
	info := ioutil.Discard
	if verbose {
		info = os.Stdout
	}

	ol.Info = ol.NewLoggerPlus(log.New(info, LogInfoLabel, log.LstdFlags))
	ol.Trace = ol.NewLoggerPlus(log.New(os.Stdout, LogTraceLabel, log.LstdFlags))
	ol.Warn = ol.NewLoggerPlus(log.New(os.Stderr, LogWarnLabel, log.LstdFlags))
	ol.Error = ol.NewLoggerPlus(log.New(os.Stderr, LogErrorLabel, log.LstdFlags))
}

// DiscardLogger drops all logs, for utest.
func DiscardLogger() {
	ol.Info = ol.NewLoggerPlus(log.New(ioutil.Discard, LogInfoLabel, log.LstdFlags))
	ol.Trace = ol.NewLoggerPlus(log.New(ioutil.Discard, LogTraceLabel, log.LstdFlags))
	ol.Warn = ol.NewLoggerPlus(log.New(ioutil.Discard, LogWarnLabel, log.LstdFlags))
	ol.Error = ol.NewLoggerPlus(log.New(ioutil.Discard, LogErrorLabel, log.LstdFlags))
}
