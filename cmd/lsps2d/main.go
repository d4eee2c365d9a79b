// lsps2d is a reference operator console for the lsps2 service core: it
// wires the library up to a loopback channel manager and exposes a handful
// of urfave/cli subcommands that exercise the fee arithmetic, promise
// signing, and the get_info step of the JIT-channel flow without requiring a
// live Lightning node or transport.
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcutil"
	"github.com/davecgh/go-spew/spew"
	"github.com/urfave/cli"

	"github.com/breez/lsps2/lsps2"
)

// amountFromMsat renders a millisatoshi amount as a whole-satoshi
// btcutil.Amount for human-readable display, truncating any sub-satoshi
// remainder.
func amountFromMsat(msat lsps2.MilliSatoshi) btcutil.Amount {
	return btcutil.Amount(int64(msat / 1000))
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := initLogRotator(
		filepath.Join(cfg.LogDir, defaultLogFilename),
		cfg.MaxLogFileSize,
		cfg.MaxLogFiles,
	); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	setLogLevels(cfg.DebugLevel)

	app := cli.NewApp()
	app.Name = "lsps2d"
	app.Usage = "operator console for the LSPS2 JIT-channel service core"
	app.Commands = []cli.Command{
		computeFeeCommand,
		signParamsCommand,
		demoCommand(cfg),
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseSecret(s string) ([32]byte, error) {
	var secret [32]byte
	raw, err := hex.DecodeString(s)
	if err != nil {
		return secret, fmt.Errorf("promise secret must be hex: %w", err)
	}
	if len(raw) != 32 {
		return secret, fmt.Errorf("promise secret must be exactly 32 bytes, got %d", len(raw))
	}
	copy(secret[:], raw)
	return secret, nil
}

var computeFeeCommand = cli.Command{
	Name:  "compute-fee",
	Usage: "compute the opening fee for a payment size under a fee schedule",
	Flags: []cli.Flag{
		cli.Uint64Flag{Name: "payment-size-msat", Required: true},
		cli.Uint64Flag{Name: "min-fee-msat", Required: true},
		cli.Uint64Flag{Name: "proportional-ppm"},
	},
	Action: func(ctx *cli.Context) error {
		fee, ok := lsps2.ComputeOpeningFee(
			lsps2.MilliSatoshi(ctx.Uint64("payment-size-msat")),
			lsps2.MilliSatoshi(ctx.Uint64("min-fee-msat")),
			ctx.Uint64("proportional-ppm"),
		)
		if !ok {
			return fmt.Errorf("fee computation overflowed")
		}
		fmt.Printf("opening_fee_msat = %d (%s)\n", fee, amountFromMsat(fee))
		return nil
	},
}

var signParamsCommand = cli.Command{
	Name:  "sign-params",
	Usage: "sign a raw opening-fee schedule into a promise-bearing menu entry",
	Flags: []cli.Flag{
		cli.Uint64Flag{Name: "min-fee-msat", Required: true},
		cli.Uint64Flag{Name: "proportional-ppm"},
		cli.Uint64Flag{Name: "min-payment-size-msat", Value: 1},
		cli.Uint64Flag{Name: "max-payment-size-msat", Required: true},
		cli.DurationFlag{Name: "valid-for", Value: time.Hour},
		cli.StringFlag{Name: "secret", Required: true, Usage: "hex-encoded 32-byte promise secret"},
	},
	Action: func(ctx *cli.Context) error {
		secret, err := parseSecret(ctx.String("secret"))
		if err != nil {
			return err
		}

		raw := lsps2.RawOpeningFeeParams{
			MinFeeMsat:         lsps2.MilliSatoshi(ctx.Uint64("min-fee-msat")),
			Proportional:       uint32(ctx.Uint64("proportional-ppm")),
			ValidUntil:         time.Now().Add(ctx.Duration("valid-for")),
			MinPaymentSizeMsat: lsps2.MilliSatoshi(ctx.Uint64("min-payment-size-msat")),
			MaxPaymentSizeMsat: lsps2.MilliSatoshi(ctx.Uint64("max-payment-size-msat")),
		}

		signed := lsps2.SignOpeningFeeParams(raw, secret)
		fmt.Println(spew.Sdump(signed))
		return nil
	},
}

// demoCommand runs the get_info step against an in-process Service and a
// loopback channel manager: a get_info request followed by the operator's
// signed fee menu, logging every event and response as it is produced. It
// does not drive buy, htlc_intercepted or channel_ready, so the loopback
// channel manager records no fails or forwards.
func demoCommand(cfg *config) cli.Command {
	return cli.Command{
		Name:  "demo",
		Usage: "run the get_info step of the JIT-channel flow against an in-memory service",
		Action: func(ctx *cli.Context) error {
			secret, err := parseSecret(cfg.PromiseSecret)
			if err != nil {
				return err
			}

			cm := newLoopbackChannelManager()
			svc := lsps2.NewService(lsps2.Config{PromiseSecret: secret}, cm)
			defer svc.Stop()

			go func() {
				for {
					select {
					case ev, ok := <-svc.Events():
						if !ok {
							return
						}
						lsp2Log.Infof("event: %s", spew.Sdump(ev))
					case resp, ok := <-svc.Responses():
						if !ok {
							return
						}
						lsp2Log.Infof("response: %s", spew.Sdump(resp))
					}
				}
			}()

			var peer lsps2.PeerID
			peer[0] = 0x02

			svc.HandleMessage(lsps2.LSPS2Request{
				RequestID: "demo-get-info",
				GetInfo:   &lsps2.GetInfoRequest{Token: ""},
			}, peer)

			if err := svc.OpeningFeeParamsGenerated(peer, "demo-get-info", []lsps2.RawOpeningFeeParams{{
				MinFeeMsat:         1000,
				Proportional:       10_000,
				ValidUntil:         time.Now().Add(time.Hour),
				MinPaymentSizeMsat: 1,
				MaxPaymentSizeMsat: 100_000_000,
			}}); err != nil {
				return err
			}

			time.Sleep(100 * time.Millisecond)
			fmt.Printf("loopback channel manager: %s\n", cm.summary())
			return nil
		},
	}
}
