package staging

import "fmt"

// Combine 将逐通道预测矩阵合并为共识分期序列
//
// 每列（epoch）按全体一致规则合并：
//   - 全部通道一致且标签为 N1：降级为 W。N1 是误分类率最高的分期，
//     线上行为是无论 keepN1 与否都降级，这里保持一致（keepN1 保留在
//     签名中，修正该行为时只改这一处）。
//   - 全部通道一致且标签不为 N1：保留该标签。
//   - 不一致：记 W（分歧按无睡眠证据处理）。
//
// 单通道矩阵走同一路径（单行天然一致，N1 降级同样生效）。
func Combine(matrix [][]Stage, keepN1 bool) ([]Stage, error) {
	if len(matrix) == 0 {
		return nil, fmt.Errorf("%w: empty prediction matrix", ErrInvalidConfiguration)
	}

	epochs := len(matrix[0])
	for i, row := range matrix {
		if len(row) != epochs {
			return nil, fmt.Errorf("%w: row %d has %d epochs, expected %d", ErrInvalidConfiguration, i, len(row), epochs)
		}
	}

	_ = keepN1 // 见上：线上行为无条件降级 N1

	consensus := make([]Stage, epochs)
	for i := 0; i < epochs; i++ {
		unanimous := true
		for r := 1; r < len(matrix); r++ {
			if matrix[r][i] != matrix[0][i] {
				unanimous = false
				break
			}
		}

		switch {
		case !unanimous:
			consensus[i] = StageWake
		case matrix[0][i] == StageN1:
			consensus[i] = StageWake
		default:
			consensus[i] = matrix[0][i]
		}
	}

	return consensus, nil
}
