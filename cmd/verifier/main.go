package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/yourorg/mpnzk/circuits"
	"github.com/yourorg/mpnzk/pkg/witness"
)

func main() {
	var proofPath, publicPath, vkPath string

	cmd := &cobra.Command{
		Use:   "verifier",
		Short: "Verify a Groth16 proof of a withdraw batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()

			pBytes, _ := os.ReadFile(proofPath)
			vBytes, _ := os.ReadFile(vkPath)
			jBytes, _ := os.ReadFile(publicPath)

			var proof groth16.Proof
			_, _ = proof.ReadFrom(bytes.NewReader(pBytes))

			var vk groth16.VerifyingKey
			_, _ = vk.ReadFrom(bytes.NewReader(vBytes))

			var pub witness.PublicInputs
			if err := json.Unmarshal(jBytes, &pub); err != nil {
				return fmt.Errorf("parsing public inputs: %w", err)
			}

			var state, aux, next fr.Element
			if _, err := state.SetString(pub.State); err != nil {
				return fmt.Errorf("parsing state: %w", err)
			}
			if _, err := aux.SetString(pub.AuxData); err != nil {
				return fmt.Errorf("parsing aux data: %w", err)
			}
			if _, err := next.SetString(pub.NextState); err != nil {
				return fmt.Errorf("parsing next state: %w", err)
			}

			pubAssign := &circuits.WithdrawCircuit{
				Height:    pub.Height,
				State:     state,
				AuxData:   aux,
				NextState: next,
			}
			pubWit, err := frontend.NewWitness(
				pubAssign,
				circuits.Curve().ScalarField(),
				frontend.PublicOnly(),
			)
			if err != nil {
				return err
			}

			if err := groth16.Verify(proof, vk, pubWit); err != nil {
				return fmt.Errorf("verification failed: %w", err)
			}
			fmt.Println("proof verified ✅")
			return nil
		},
	}

	cmd.Flags().StringVar(&proofPath, "proof", "", "withdraw_proof.bin")
	cmd.Flags().StringVar(&publicPath, "public", "", "withdraw_public.json")
	cmd.Flags().StringVar(&vkPath, "vk", "", "withdraw_vk_<shape>.bin")
	_ = cmd.MarkFlagRequired("proof")
	_ = cmd.MarkFlagRequired("public")
	_ = cmd.MarkFlagRequired("vk")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		log.Fatal(err)
	}
}
