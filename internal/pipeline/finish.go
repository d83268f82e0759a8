package pipeline

import "github.com/gin-gonic/gin"

const finishKey = "pipeline.finish"

// FinishFunc observes the status of the response a chain ended with.
type FinishFunc func(status int)

// OnFinish registers fn to run once the driver has written the response.
// Stages use it for work that depends on the outcome, like refunding a
// rate-limit hit for a successful request.
func OnFinish(c *gin.Context, fn FinishFunc) {
	var fns []FinishFunc
	if v, ok := c.Get(finishKey); ok {
		fns, _ = v.([]FinishFunc)
	}
	c.Set(finishKey, append(fns, fn))
}

func runFinish(c *gin.Context, status int) {
	v, ok := c.Get(finishKey)
	if !ok {
		return
	}
	c.Set(finishKey, []FinishFunc(nil))
	fns, _ := v.([]FinishFunc)
	for _, fn := range fns {
		fn(status)
	}
}
