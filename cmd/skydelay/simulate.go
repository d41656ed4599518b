package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/skydelay/cascade-engine/internal/api"
	"github.com/skydelay/cascade-engine/internal/engine"
	"github.com/skydelay/cascade-engine/internal/services"
)

func newSimulateCmd() *cobra.Command {
	var (
		airport string
		delay   float64
		remote  string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Project the downstream cascade and cost of a hypothetical delay at an airport",
		Example: `  skydelay simulate --airport ORD --delay 90
  skydelay simulate --airport ATL --delay 45 --remote localhost:50061`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := structpb.NewStruct(map[string]any{"airport": airport, "delay_minutes": delay})
			if err != nil {
				return err
			}

			var resp *structpb.Struct
			if remote != "" {
				resp, err = simulateRemote(cmd.Context(), remote, timeout, req)
			} else {
				resp, err = simulateLocal(cmd.Context(), req)
			}
			if err != nil {
				return err
			}

			out, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(resp)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&airport, "airport", "", "IATA airport code")
	cmd.Flags().Float64Var(&delay, "delay", 60, "Hypothetical delay in minutes")
	cmd.Flags().StringVar(&remote, "remote", "", "Address of a running skydelay server; runs the pipeline locally when empty")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Remote call timeout")
	_ = cmd.MarkFlagRequired("airport")
	return cmd
}

func simulateLocal(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	a, err := newApp(ctx)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	if _, err := a.runner.RunOnce(ctx); err != nil {
		return nil, err
	}
	svc := services.NewCascadeService(a.logger, a.store, engine.NewSimulator(a.pipeline.Economics()))
	return svc.Simulate(ctx, req)
}

func simulateRemote(ctx context.Context, addr string, timeout time.Duration, req *structpb.Struct) (*structpb.Struct, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return api.NewClient(conn).Call(ctx, api.MethodSimulate, req)
}
