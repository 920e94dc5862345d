package rewrite

import "github.com/Sumatoshi-tech/modwrap/pkg/jsast"

// Helper function names emitted into every factory body.
const (
	interopHelper  = "_interop"
	requireHelper  = "__imp"
	reexportHelper = "__reexport"
	esModuleFlag   = "__esModule"
	registerFunc   = "r"
)

// interopSource normalizes a resolved dependency: objects already carrying
// the __esModule flag pass through, anything else is copied (keeping
// accessors) and exposed as a whole under "default".
const interopSource = `function _interop(obj) {
    if (obj && obj.__esModule) {
      return obj;
    }
    var newObj = {};
    if (obj != null) {
      for (var key in obj) {
        if (Object.prototype.hasOwnProperty.call(obj, key)) {
          var desc = Object.getOwnPropertyDescriptor ? Object.getOwnPropertyDescriptor(obj, key) : {};
          if (desc && (desc.get || desc.set)) {
            Object.defineProperty(newObj, key, desc);
          } else {
            newObj[key] = obj[key];
          }
        }
      }
    }
    newObj.default = obj;
    return newObj;
  }`

// Re-export helpers copy every non-default key of source that target does
// not define yet.
const (
	reexportStaticSource = `function __reexport(target, source) {
    if (source == null) {
      return;
    }
    Object.keys(source).forEach(function (key) {
      if (key !== "default" && !Object.prototype.hasOwnProperty.call(target, key)) {
        target[key] = source[key];
      }
    });
  }`
	reexportLiveSource = `function __reexport(target, source) {
    if (source == null) {
      return;
    }
    Object.keys(source).forEach(function (key) {
      if (key !== "default" && !Object.prototype.hasOwnProperty.call(target, key)) {
        r.d(target, key, function () {
          return source[key];
        });
      }
    });
  }`
)

// markerStmt flags the exports object as an ES module.
func (c *Context) markerStmt() jsast.Stmt {
	if c.cfg.Strategy == StrategyLive {
		return jsast.Do(jsast.CallOf(jsast.Path(RequireParam, registerFunc), jsast.Id(ExportsParam)))
	}

	return jsast.Do(jsast.CallOf(
		jsast.Path("Object", "defineProperty"),
		jsast.Id(ExportsParam),
		jsast.Str(esModuleFlag),
		jsast.Obj(jsast.Prop("value", jsast.True())),
	))
}

// safeRequireDecl builds the guarded resolver call:
//
//	function __imp(p, n) {
//	  try {
//	    return _interop(r(p, n));
//	  } catch (err) {
//	    console.error("[Tag]: Module \"" + n + "\" was not found!");
//	  }
//	}
func (c *Context) safeRequireDecl() jsast.Stmt {
	var resolved jsast.Expr = jsast.CallOf(jsast.Id(RequireParam), jsast.Id("p"), jsast.Id("n"))
	if c.cfg.Strategy == StrategyStatic {
		resolved = jsast.CallOf(jsast.Id(interopHelper), resolved)
	}

	prefix := `Module "`
	if c.cfg.DiagnosticTag != "" {
		prefix = "[" + c.cfg.DiagnosticTag + "]: " + prefix
	}

	message := jsast.Concat(jsast.Concat(jsast.Str(prefix), jsast.Id("n")), jsast.Str(`" was not found!`))

	return jsast.Declare(requireHelper, []string{"p", "n"},
		jsast.TryCatch(
			[]jsast.Stmt{jsast.Ret(resolved)},
			"err",
			jsast.Do(jsast.CallOf(jsast.Path("console", "error"), message)),
		),
	)
}

func (c *Context) reexportDecl() jsast.Stmt {
	if c.cfg.Strategy == StrategyLive {
		return jsast.Source(reexportLiveSource)
	}

	return jsast.Source(reexportStaticSource)
}

// importDecl hoists one dependency:
//
//	var _iN = __imp(hash, path) || { __esModule: true };
//
// The flagged empty namespace stands in for a dependency that failed to
// resolve, so default and named bindings read from it are undefined instead
// of throwing.
func importDecl(rec ImportRecord) jsast.Stmt {
	resolved := jsast.CallOf(jsast.Id(requireHelper), jsast.Str(rec.Hash), jsast.Str(rec.Path))

	return jsast.Var(rec.Namespace, jsast.Or(resolved, jsast.Obj(jsast.Prop(esModuleFlag, jsast.True()))))
}
