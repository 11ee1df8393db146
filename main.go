package main

import (
	"flag"
	"math/rand"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/viper"

	"github.com/adseller/deal-server/config"
	"github.com/adseller/deal-server/router"
	"github.com/adseller/deal-server/server"
)

// Rev holds the binary revision string.
// Set at build time using:
//    go build -ldflags "-X main.Rev=`git rev-parse --short HEAD`"
var Rev string

func init() {
	rand.Seed(time.Now().UnixNano())
}

const configFileName = "dealserver"

func main() {
	flag.Parse() // required for glog flags and testing package flags

	cfg, err := loadConfig()
	if err != nil {
		glog.Exitf("Configuration could not be loaded or did not pass validation: %v", err)
	}

	if err := serve(cfg); err != nil {
		glog.Exitf("deal-server failed: %v", err)
	}
}

func loadConfig() (*config.Configuration, error) {
	v := viper.New()
	config.SetupViper(v, configFileName)
	return config.New(v)
}

func serve(cfg *config.Configuration) error {
	r, err := router.New(cfg)
	if err != nil {
		return err
	}
	defer r.Shutdown()

	glog.Infof("deal-server rev %s serving seller %s", Rev, cfg.SellerOrganizationID)

	corsRouter := router.SupportCORS(r)
	server.Listen(cfg, router.NoCache{Handler: corsRouter}, adminMux())
	return nil
}

// adminMux serves the default mux so expvar and pprof registrations stay off
// the public port.
func adminMux() http.Handler {
	return http.DefaultServeMux
}
