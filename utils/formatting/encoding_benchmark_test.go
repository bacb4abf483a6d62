// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package formatting

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/constants"
)

func BenchmarkEncodings(b *testing.B) {
	benchmarks := []struct {
		encoding Encoding
		size     int
	}{
		{
			encoding: Hex,
			size:     1 * constants.KiB,
		},
		{
			encoding: Hex,
			size:     32 * constants.KiB,
		},
		{
			encoding: Hex,
			size:     1 * constants.MiB,
		},
		{
			encoding: HexNC,
			size:     32 * constants.KiB,
		},
		{
			encoding: HexNC,
			size:     1 * constants.MiB,
		},
	}
	for _, benchmark := range benchmarks {
		bytes := make([]byte, benchmark.size)
		_, _ = rand.Read(bytes) // #nosec G404
		b.Run(fmt.Sprintf("%s-%d bytes", benchmark.encoding, benchmark.size), func(b *testing.B) {
			for n := 0; n < b.N; n++ {
				_, err := Encode(benchmark.encoding, bytes)
				require.NoError(b, err)
			}
		})
	}
}
