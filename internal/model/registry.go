package model

// AllPayloads 返回所有需要在边界校验的后端载荷类型
// 新增接口时，只需要在这里添加即可，测试会检查 validate tag 是否合法
func AllPayloads() []interface{} {
	return []interface{}{
		&RewardProject{},
		&SchoolWallet{},
		&WalletUpsertRequest{},
		&DistributionPreview{},
		&DistributionResult{},
		&DistributionStatus{},
		&AuditPage{},
		&LoginResponse{},
	}
}
