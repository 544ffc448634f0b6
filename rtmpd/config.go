/*
The MIT License (MIT)

Copyright (c) 2016 winlin

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

/*
This is the config for rtmpd, json+ or yaml.
*/
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/winlinvip/rtmpx/agent"
	"github.com/winlinvip/rtmpx/kernel"
	"github.com/winlinvip/rtmpx/rtmp"
	"gopkg.in/yaml.v3"

	oe "github.com/ossrs/go-oryx-lib/errors"
	oj "github.com/ossrs/go-oryx-lib/json"
	ol "github.com/ossrs/go-oryx-lib/logger"
)

// The config object for rtmpd.
type Config struct {
	Logger struct {
		Tank     string `json:"tank" yaml:"tank"`
		FilePath string `json:"file" yaml:"file"`
	} `json:"logger" yaml:"logger"`
	// The rtmp listen urls, for example, rtmp://:1935 or rtmps://:443
	Listens []string `json:"listens" yaml:"listens"`
	// The http api, for example, http://:1985
	Api        string `json:"api" yaml:"api"`
	MaxClients int    `json:"max_clients" yaml:"max_clients"`

	ChunkLength        uint32 `json:"chunk_length" yaml:"chunk_length"`
	WindowAckSize      uint32 `json:"window_ack_size" yaml:"window_ack_size"`
	PeerBandwidth      uint32 `json:"peer_bandwidth" yaml:"peer_bandwidth"`
	PeerBandwidthLimit string `json:"peer_bandwidth_limit" yaml:"peer_bandwidth_limit"`

	// The self-sign certificate for rtmps, by:
	//		openssl genrsa -out server.key 2048
	//		openssl req -new -x509 -key server.key -out server.crt -days 365
	Certificate struct {
		Cert string `json:"cert" yaml:"cert"`
		Key  string `json:"key" yaml:"key"`
	} `json:"certificate" yaml:"certificate"`
}

func NewConfig() *Config {
	v := &Config{}
	v.SetDefaults()
	return v
}

// The interface fmt.Stringer
func (v *Config) String() string {
	var logger string
	if v.Logger.Tank == "console" {
		logger = v.Logger.Tank
	} else {
		logger = fmt.Sprintf("tank=%v,file=%v", v.Logger.Tank, v.Logger.FilePath)
	}

	return fmt.Sprintf("logger(%v), listens=%v, api=%v, max_clients=%v, chunk=%v, ack=%v, bw=%v/%v, cert=%v",
		logger, v.Listens, v.Api, v.MaxClients, v.ChunkLength, v.WindowAckSize,
		v.PeerBandwidth, v.PeerBandwidthLimit, v.Certificate.Cert)
}

func (v *Config) SetDefaults() {
	if v.Logger.Tank == "" {
		v.Logger.Tank = "console"
	}
	if len(v.Listens) == 0 {
		v.Listens = []string{fmt.Sprintf("rtmp://:%v", kernel.DefaultRtmpPort)}
	}
	if v.MaxClients == 0 {
		v.MaxClients = agent.DefaultMaxClients
	}
	if v.ChunkLength == 0 {
		v.ChunkLength = rtmp.DefaultChunkLength
	}
	if v.WindowAckSize == 0 {
		v.WindowAckSize = rtmp.DefaultWindowAcknowledgementSize
	}
	if v.PeerBandwidth == 0 {
		v.PeerBandwidth = rtmp.DefaultPeerBandwidth
	}
	if v.PeerBandwidthLimit == "" {
		v.PeerBandwidthLimit = rtmp.DefaultPeerBandwidthLimit
	}
}

// Loads the config from file, the yaml for .yaml or .yml, json+ otherwise.
func (v *Config) Loads(c string) (err error) {
	var f *os.File
	if f, err = os.Open(c); err != nil {
		return oe.Wrapf(err, "open %v", c)
	}
	defer f.Close()

	if strings.HasSuffix(c, ".yaml") || strings.HasSuffix(c, ".yml") {
		err = v.decodeYaml(f)
	} else {
		err = v.decodeJson(f)
	}
	if err != nil {
		return oe.WithMessage(err, c)
	}

	v.SetDefaults()
	return v.Validate()
}

func (v *Config) decodeJson(r io.Reader) error {
	d := json.NewDecoder(oj.NewJsonPlusReader(r))
	if err := d.Decode(v); err != nil {
		return oe.Wrap(err, "decode json")
	}
	return nil
}

func (v *Config) decodeYaml(r io.Reader) error {
	d := yaml.NewDecoder(r)
	d.KnownFields(true)
	if err := d.Decode(v); err != nil && err != io.EOF {
		return oe.Wrap(err, "decode yaml")
	}
	return nil
}

func (v *Config) Validate() (err error) {
	if tank := v.Logger.Tank; tank != "file" && tank != "console" {
		return oe.Errorf("invalid logger tank, must be console/file, actual is %v", tank)
	}
	if v.Logger.Tank == "file" && v.Logger.FilePath == "" {
		return oe.New("no logger file")
	}

	var rtmps bool
	for _, l := range v.Listens {
		u, err := kernel.ParseListenURL(l)
		if err != nil {
			return oe.WithMessage(err, "listen")
		}
		rtmps = rtmps || u.Scheme == "rtmps"
	}
	if rtmps && (v.Certificate.Cert == "" || v.Certificate.Key == "") {
		return oe.New("rtmps requires certificate")
	}

	if v.Api != "" && !strings.HasPrefix(v.Api, "http://") {
		return oe.Errorf("api %v should prefix with http://", v.Api)
	}
	if v.MaxClients < 0 {
		return oe.Errorf("invalid max clients %v", v.MaxClients)
	}

	// Use a fake url, for the options of server conn ignore it.
	opts := v.Options()
	opts.Url = "rtmp://127.0.0.1"
	if err = opts.Validate(); err != nil {
		return oe.WithMessage(err, "rtmp")
	}

	return
}

// The options for server connections.
func (v *Config) Options() *rtmp.Options {
	return &rtmp.Options{
		ChunkLength:               v.ChunkLength,
		WindowAcknowledgementSize: v.WindowAckSize,
		PeerBandwidth:             v.PeerBandwidth,
		PeerBandwidthLimit:        v.PeerBandwidthLimit,
	}
}

// Open the logger, when tank is file, switch logger to file.
func (v *Config) OpenLogger() (err error) {
	if v.Logger.Tank != "file" {
		return
	}

	var f *os.File
	if f, err = os.OpenFile(v.Logger.FilePath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644); err != nil {
		return oe.Wrapf(err, "open logger %v", v.Logger.FilePath)
	}

	_ = ol.Close()
	ol.Switch(f)

	return
}

// The interface io.Closer
// Cleanup the resource open by config, for example, the logger file.
func (v *Config) Close() error {
	return ol.Close()
}
