package logfields

import "go.uber.org/zap"

func JobID(val string) zap.Field {
	return zap.String("job.id", val)
}

func JobType(val string) zap.Field {
	return zap.String("job.type", val)
}

func Template(val string) zap.Field {
	return zap.String("template", val)
}

func Strategy(val string) zap.Field {
	return zap.String("merge_strategy", val)
}
