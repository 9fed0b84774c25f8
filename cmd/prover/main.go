package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/yourorg/mpnzk/circuits"
	"github.com/yourorg/mpnzk/pkg/witness"
)

// contextKey is a custom type for context keys to avoid conflicts
type contextKey string

const startTimeKey contextKey = "start"

func main() {
	var (
		fixturePath string
		outDir      string
	)

	rootCmd := &cobra.Command{
		Use:   "prover",
		Short: "Generate a Groth16 proof for a withdraw batch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if fixturePath == "" {
				_ = godotenv.Load()
				fixturePath = os.Getenv("WITHDRAW_FIXTURE")
				if fixturePath == "" {
					return fmt.Errorf("--fixture flag or WITHDRAW_FIXTURE env var is required")
				}
			}

			// -----------------------------------------------------------------
			// Witness bundle
			// -----------------------------------------------------------------
			fixture, err := witness.LoadFixture(fixturePath)
			if err != nil {
				return err
			}
			bundle, err := fixture.Replay()
			if err != nil {
				return err
			}

			// -----------------------------------------------------------------
			// Circuit compile
			// -----------------------------------------------------------------
			cs, err := frontend.Compile(
				circuits.Curve().ScalarField(),
				r1cs.NewBuilder,
				bundle.Blueprint,
			)
			if err != nil {
				return err
			}

			// -----------------------------------------------------------------
			// Trusted setup (cached per shape)
			// -----------------------------------------------------------------
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			shape := fmt.Sprintf("b%d_a%d_t%d",
				fixture.BatchLog4Size, fixture.AccountLog4Depth, fixture.BalanceLog4Depth)
			pkPath := filepath.Join(outDir, "withdraw_pk_"+shape+".bin")
			vkPath := filepath.Join(outDir, "withdraw_vk_"+shape+".bin")

			var pk groth16.ProvingKey
			var vk groth16.VerifyingKey

			if pkBytes, err := os.ReadFile(pkPath); err == nil {
				_, _ = pk.ReadFrom(bytes.NewReader(pkBytes))
				vkBytes, _ := os.ReadFile(vkPath)
				_, _ = vk.ReadFrom(bytes.NewReader(vkBytes))
			} else {
				pk, vk, err = groth16.Setup(cs)
				if err != nil {
					return err
				}
				var b bytes.Buffer
				_, _ = pk.WriteTo(&b)
				_ = os.WriteFile(pkPath, b.Bytes(), 0o644)
				b.Reset()
				_, _ = vk.WriteTo(&b)
				_ = os.WriteFile(vkPath, b.Bytes(), 0o644)
			}

			// -----------------------------------------------------------------
			// Prove
			// -----------------------------------------------------------------
			proof, err := groth16.Prove(cs, pk, bundle.Full)
			if err != nil {
				return err
			}

			// -----------------------------------------------------------------
			// Outputs
			// -----------------------------------------------------------------
			proofPath := filepath.Join(outDir, "withdraw_proof.bin")
			publicPath := filepath.Join(outDir, "withdraw_public.json")

			var buf bytes.Buffer
			_, _ = proof.WriteTo(&buf)
			_ = os.WriteFile(proofPath, buf.Bytes(), 0o644)

			jsonBytes, _ := json.MarshalIndent(bundle.Public, "", "  ")
			_ = os.WriteFile(publicPath, jsonBytes, 0o644)

			csBuf := new(bytes.Buffer)
			_, _ = cs.WriteTo(csBuf)
			sum := sha256.Sum256(csBuf.Bytes())
			fmt.Printf("circuit hash: %x\n", sum[:4])
			fmt.Printf("proof done in %s\n", time.Since(cmd.Context().Value(startTimeKey).(time.Time)))
			return nil
		},
	}

	rootCmd.Flags().StringVar(&fixturePath, "fixture", "", "Batch fixture JSON")
	rootCmd.Flags().StringVar(&outDir, "outdir", "./", "Output directory")

	rootCmd.SetContext(context.WithValue(context.Background(), startTimeKey, time.Now()))
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
