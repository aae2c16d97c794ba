package usecase

import (
	"math"

	candleentity "support_tracker/internal/feature/candles/domain/entity"
	"support_tracker/internal/feature/prices/domain/entity"
)

// BuildVolumeProfile は [最安値, 最高値] を bins 個の等幅ビンに分割し、
// 各ビンと値幅 [Low, High] が重なるローソク足の出来高を合計します。
// 出来高が正のビンのみを返します。
//
// ビンの下端は固定幅で積み上げるため、浮動小数点誤差により最後のビンの上端が
// 実際の最高値をビン幅未満だけ超えることがあります。
func BuildVolumeProfile(candles []candleentity.Candle, bins int) []entity.VolumeProfileBin {
	out := []entity.VolumeProfileBin{}
	if len(candles) == 0 || bins <= 0 {
		return out
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, c := range candles {
		lo = math.Min(lo, c.Low)
		hi = math.Max(hi, c.High)
	}

	binSize := (hi - lo) / float64(bins)
	if binSize == 0 {
		// 値幅ゼロの場合は同一ビンがbins個並ぶだけなので1つにまとめる
		var total float64
		for _, c := range candles {
			total += c.Volume
		}
		if total > 0 {
			out = append(out, entity.VolumeProfileBin{PriceLevel: lo, Volume: total})
		}
		return out
	}

	current := lo
	for i := 0; i < bins; i++ {
		var volume float64
		for _, c := range candles {
			if c.Low <= current+binSize && c.High >= current {
				volume += c.Volume
			}
		}
		if volume > 0 {
			out = append(out, entity.VolumeProfileBin{PriceLevel: current, Volume: volume})
		}
		current += binSize
	}
	return out
}
